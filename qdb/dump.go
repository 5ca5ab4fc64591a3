package qdb

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// DumpTable prints table as a bordered grid with a row count footer. It is
// meant for inspection only.
func DumpTable(ctx context.Context, db QDB, table string, w io.Writer) error {
	t, err := db.GetTable(ctx, table)
	if err != nil {
		return err
	}
	rows, err := db.ListRows(ctx, table)
	if err != nil {
		return err
	}

	header := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		header = append(header, c.Name)
	}

	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeader(header)

	for _, r := range rows {
		cells := make([]string, 0, len(t.Columns))
		for _, c := range t.Columns {
			v, ok := r[c.Name]
			if !ok {
				cells = append(cells, "null")
				continue
			}
			cells = append(cells, v.String())
		}
		tw.Append(cells)
	}
	tw.Render()

	suffix := "s"
	if len(rows) == 1 {
		suffix = ""
	}
	_, err = fmt.Fprintf(w, "(%d row%s)\n", len(rows), suffix)
	return err
}
