package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jn-toolkit/jn/internal/ndjson"
	"github.com/jn-toolkit/jn/internal/record"
)

// newTableCmd implements `jn table [source]`: buffer every record,
// compute one column per field seen on any record (union of keys, first-
// seen order), and pretty-print as a fixed-width table truncated to the
// terminal width when stdout is a TTY.
func newTableCmd(env *cmdEnv) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "table [source]",
		Short: "pretty-print a stream of object records as a table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from := "-"
			if len(args) > 0 {
				from = args[0]
			}

			ctx := cmd.Context()
			reg, err := buildRegistry(ctx, env.log)
			if err != nil {
				return err
			}
			src, err := openSource(ctx, from, reg, env.log, env.flags.strict)
			if err != nil {
				return err
			}

			var rows []record.Record
			var cols []string
			seen := map[string]bool{}
			for {
				rec, err := src.Next()
				if err == io.EOF {
					break
				}
				if err != nil {
					src.Close()
					return err
				}
				rows = append(rows, rec.Clone())
				if rec.Kind() == record.KindObject {
					rec.Object().Each(func(k string, _ record.Record) bool {
						if !seen[k] {
							seen[k] = true
							cols = append(cols, k)
						}
						return true
					})
				}
			}
			if err := src.Close(); err != nil {
				return err
			}

			if len(fields) > 0 {
				cols = fields
			}
			printTable(cmd.OutOrStdout(), cols, rows)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&fields, "fields", nil, "explicit column list and order (default: union of keys in first-seen order)")
	return cmd
}

func printTable(w io.Writer, cols []string, rows []record.Record) {
	widths := make([]int, len(cols))
	for i, c := range cols {
		widths[i] = len(c)
	}
	cells := make([][]string, len(rows))
	for r, rec := range rows {
		cells[r] = make([]string, len(cols))
		for i, c := range cols {
			v, ok := rec.Field(c)
			s := ""
			if ok {
				s = cellString(v)
			}
			cells[r][i] = s
			if len(s) > widths[i] {
				widths[i] = len(s)
			}
		}
	}

	maxWidth := terminalWidth()
	clampWidths(widths, maxWidth)

	writeRow(w, cols, widths)
	sep := make([]string, len(cols))
	for i, wd := range widths {
		sep[i] = strings.Repeat("-", wd)
	}
	writeRow(w, sep, widths)
	for _, row := range cells {
		writeRow(w, row, widths)
	}
}

func writeRow(w io.Writer, cells []string, widths []int) {
	var sb strings.Builder
	for i, c := range cells {
		if i > 0 {
			sb.WriteString("  ")
		}
		sb.WriteString(padTrunc(c, widths[i]))
	}
	fmt.Fprintln(w, sb.String())
}

func padTrunc(s string, width int) string {
	if len(s) > width {
		if width <= 1 {
			return s[:width]
		}
		return s[:width-1] + "…"
	}
	return s + strings.Repeat(" ", width-len(s))
}

// clampWidths shrinks the widest columns when the row would overflow
// maxWidth, leaving narrow columns untouched. maxWidth <= 0 disables
// clamping (non-TTY output).
func clampWidths(widths []int, maxWidth int) {
	if maxWidth <= 0 {
		return
	}
	total := func() int {
		sum := 2 * (len(widths) - 1)
		for _, w := range widths {
			sum += w
		}
		return sum
	}
	for total() > maxWidth {
		maxIdx, maxVal := -1, 0
		for i, w := range widths {
			if w > maxVal {
				maxVal, maxIdx = w, i
			}
		}
		if maxIdx < 0 || widths[maxIdx] <= 4 {
			break
		}
		widths[maxIdx]--
	}
}

func cellString(v record.Record) string {
	switch v.Kind() {
	case record.KindString:
		return v.Str()
	case record.KindNull:
		return ""
	default:
		return string(ndjson.AppendRecord(nil, v))
	}
}

func terminalWidth() int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return 0
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}
