package main

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sternrassler/growappt-crawler/pkg/crawler"
)

// renderSummary prints the run totals and output paths as a table.
func renderSummary(w io.Writer, res crawler.Result) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)

	t.AppendHeader(table.Row{"Run", res.RunID})
	t.AppendRows([]table.Row{
		{"Pages fetched", res.Pagination.PagesFetched},
		{"Rows processed", res.Rows},
		{"Duplicate groups", res.Export.Groups},
		{"Duplicate rows", res.Export.DupeRows},
		{"Unique rows", res.Export.UniqueRows},
		{"Stop reason", string(res.Pagination.Reason)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Duplicates file", res.Export.Paths.Dupes},
		{"Unique file", res.Export.Paths.Unique},
	})
	t.Render()
}
