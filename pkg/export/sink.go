package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Format is an output file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// XLSXSheet is the worksheet name used in workbook output.
const XLSXSheet = "customers"

// FormatFor picks the format from a path's extension; anything but .xlsx is CSV.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return FormatXLSX
	}
	return FormatCSV
}

// Sink receives rows in order. Close flushes and must be called once.
type Sink interface {
	WriteRow(values []string) error
	Close() error
}

// OpenSink creates (truncating) path and returns a sink for format.
func OpenSink(path string, format Format) (Sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatXLSX:
		return newXLSXSink(f)
	default:
		return &csvSink{file: f, w: csv.NewWriter(f)}, nil
	}
}

type csvSink struct {
	file *os.File
	w    *csv.Writer
}

func (s *csvSink) WriteRow(values []string) error {
	return s.w.Write(values)
}

func (s *csvSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

type xlsxSink struct {
	file *os.File
	book *excelize.File
	row  int
}

func newXLSXSink(f *os.File) (*xlsxSink, error) {
	book := excelize.NewFile()
	if err := book.SetSheetName(book.GetSheetName(0), XLSXSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	return &xlsxSink{file: f, book: book}, nil
}

func (s *xlsxSink) WriteRow(values []string) error {
	s.row++
	cell, err := excelize.CoordinatesToCellName(1, s.row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return s.book.SetSheetRow(XLSXSheet, cell, &cells)
}

func (s *xlsxSink) Close() error {
	defer s.book.Close()
	if err := s.book.Write(s.file); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}
