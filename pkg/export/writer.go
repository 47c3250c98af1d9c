package export

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/growappt-crawler/pkg/customer"
	"github.com/Sternrassler/growappt-crawler/pkg/logging"
)

var rowsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "growappt_rows_written_total",
	Help: "Data rows written by output file",
}, []string{"file"})

// ErrOutput marks failures to create the output directory or write a file.
var ErrOutput = errors.New("output error")

// Result reports what one export wrote. Row counts exclude the header and
// group separators.
type Result struct {
	Paths      Paths
	Format     Format
	Groups     int
	DupeRows   int
	UniqueRows int
}

// Writer emits a customer.Partition to the dupes and unique files.
type Writer struct {
	base   string
	format Format
	logger zerolog.Logger
}

// NewWriter returns a writer for base; the format follows base's extension.
func NewWriter(base string) *Writer {
	return &Writer{
		base:   base,
		format: FormatFor(base),
		logger: logging.NewLogger(logging.ComponentExport),
	}
}

// Write creates the directory if needed and writes both files stamped with ts.
func (w *Writer) Write(p customer.Partition, ts time.Time) (Result, error) {
	paths := ResolvePaths(w.base, ts)
	res := Result{Paths: paths, Format: w.format, Groups: len(p.Groups)}

	if err := os.MkdirAll(paths.Dir, 0o775); err != nil {
		return res, fmt.Errorf("%w: create directory %s: %v", ErrOutput, paths.Dir, err)
	}

	dupes, err := OpenSink(paths.Dupes, w.format)
	if err != nil {
		return res, fmt.Errorf("%w: unable to open duplicates file %s: %v", ErrOutput, paths.Dupes, err)
	}
	unique, err := OpenSink(paths.Unique, w.format)
	if err != nil {
		dupes.Close()
		return res, fmt.Errorf("%w: unable to open unique file %s: %v", ErrOutput, paths.Unique, err)
	}

	res.DupeRows, err = writeDupes(dupes, p.Groups)
	if cerr := dupes.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		unique.Close()
		return res, fmt.Errorf("%w: write %s: %v", ErrOutput, paths.Dupes, err)
	}

	res.UniqueRows, err = writeRows(unique, p.Unique)
	if cerr := unique.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return res, fmt.Errorf("%w: write %s: %v", ErrOutput, paths.Unique, err)
	}

	rowsWrittenTotal.WithLabelValues("dupes").Add(float64(res.DupeRows))
	rowsWrittenTotal.WithLabelValues("unique").Add(float64(res.UniqueRows))

	w.logger.Info().Str("path", paths.Dupes).Int("rows", res.DupeRows).Int("groups", res.Groups).Msg("Duplicates written")
	w.logger.Info().Str("path", paths.Unique).Int("rows", res.UniqueRows).Msg("Uniques written")

	return res, nil
}

// writeDupes writes the header, then each group with one blank row between groups.
func writeDupes(s Sink, groups []customer.Group) (int, error) {
	if err := s.WriteRow(customer.Header()); err != nil {
		return 0, err
	}
	n := 0
	for i, g := range groups {
		if i > 0 {
			if err := s.WriteRow(customer.BlankRow()); err != nil {
				return n, err
			}
		}
		for _, row := range g.Rows {
			if err := s.WriteRow(row.Values); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func writeRows(s Sink, rows []customer.Row) (int, error) {
	if err := s.WriteRow(customer.Header()); err != nil {
		return 0, err
	}
	for i, row := range rows {
		if err := s.WriteRow(row.Values); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}
