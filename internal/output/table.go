// Package output renders article listings and errors for the terminal.
package output

import (
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"newsdesk/internal/model"
)

// Table renders rows with left-aligned borderless styling.
type Table struct {
	table  *tablewriter.Table
	header []string
	rows   [][]string
}

func NewTable(w io.Writer, headers []string) *Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)
	return &Table{table: table, header: headers}
}

func (t *Table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

func (t *Table) Render() {
	t.table.Header(t.header)
	t.table.Bulk(t.rows)
	t.table.Render()
}

// ArticleTable renders the standard listing: id, title, url, status.
func ArticleTable(w io.Writer, articles []model.Article, colors bool) {
	t := NewTable(w, []string{"ID", "Title", "URL", "Status"})
	for _, a := range articles {
		t.AddRow([]string{a.ID, a.Title, a.URL, StatusLabel(a.Status, colors)})
	}
	t.Render()
}

// StatusLabel colors the publication status when colors are enabled.
func StatusLabel(status model.ArticleStatus, colors bool) string {
	if !colors {
		return string(status)
	}
	switch status {
	case model.StatusPublished:
		return color.GreenString(string(status))
	case model.StatusUnpublished:
		return color.YellowString(string(status))
	}
	return string(status)
}
