// Package export writes partitioned customer rows to the duplicate and
// unique output files.
package export

import (
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout is the run timestamp embedded in output file names.
const TimestampLayout = "20060102_150405"

// DefaultExtension is used when the base path has none.
const DefaultExtension = "csv"

// Paths are the two output files of one run.
type Paths struct {
	Dir    string
	Dupes  string
	Unique string
}

// ResolvePaths derives <dir>/<name>_dupes_<ts>.<ext> and
// <dir>/<name>_unique_<ts>.<ext> from base.
func ResolvePaths(base string, ts time.Time) Paths {
	base = strings.TrimSpace(base)
	dir := filepath.Dir(base)
	file := filepath.Base(base)

	ext := filepath.Ext(file)
	name := strings.TrimSuffix(file, ext)
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultExtension
	}

	stamp := ts.Format(TimestampLayout)
	return Paths{
		Dir:    dir,
		Dupes:  filepath.Join(dir, name+"_dupes_"+stamp+"."+ext),
		Unique: filepath.Join(dir, name+"_unique_"+stamp+"."+ext),
	}
}
