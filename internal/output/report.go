package output

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/doppelkit/doppel/pkg/aggregate"
)

// Suspicion bands for the matrix. Scores at or below Low render
// green, at or below High yellow, above High red.
const (
	BandLow  = 0.70
	BandHigh = 0.85
)

// Report renders an aggregated comparison run.
type Report struct {
	Result *aggregate.Result
}

// NewReport wraps a run result for formatting.
func NewReport(res *aggregate.Result) *Report {
	return &Report{Result: res}
}

func (r *Report) RenderData() any {
	return r.Result
}

func cell(score float64) string {
	if score < 0 {
		return "·"
	}
	return fmt.Sprintf("%.2f", score)
}

func colorCell(score float64) string {
	s := cell(score)
	switch {
	case score < 0:
		return s
	case score <= BandLow:
		return color.GreenString(s)
	case score <= BandHigh:
		return color.YellowString(s)
	default:
		return color.RedString(s)
	}
}

func (r *Report) matrixTable(colored bool) *Table {
	res := r.Result
	headers := append([]string{"project"}, res.Names...)

	rows := make([][]string, len(res.Names))
	for i, name := range res.Names {
		row := make([]string, len(res.Names)+1)
		row[0] = name
		for j := range res.Names {
			if i == j {
				row[j+1] = "-"
				continue
			}
			if colored {
				row[j+1] = colorCell(res.Matrix[i][j])
			} else {
				row[j+1] = cell(res.Matrix[i][j])
			}
		}
		rows[i] = row
	}
	return NewTable("Similarity", headers, rows, nil, res)
}

// suspiciousPairs lists scored pairs above the low band, worst first.
func (r *Report) suspiciousPairs() [][2]int {
	res := r.Result
	var pairs [][2]int
	for i := range res.Names {
		for j := i + 1; j < len(res.Names); j++ {
			if res.Matrix[i][j] > BandLow {
				pairs = append(pairs, [2]int{i, j})
			}
		}
	}
	sort.Slice(pairs, func(a, b int) bool {
		sa := res.Matrix[pairs[a][0]][pairs[a][1]]
		sb := res.Matrix[pairs[b][0]][pairs[b][1]]
		return sa > sb
	})
	return pairs
}

func (r *Report) RenderText(w io.Writer, colored bool) error {
	res := r.Result

	if err := r.matrixTable(colored).RenderText(w, colored); err != nil {
		return err
	}

	if pairs := r.suspiciousPairs(); len(pairs) > 0 {
		if colored {
			color.New(color.Bold).Fprintln(w, "Flagged pairs")
		} else {
			fmt.Fprintln(w, "Flagged pairs")
		}
		for _, p := range pairs {
			score := res.Matrix[p[0]][p[1]]
			line := fmt.Sprintf("  %s / %s: %.2f", res.Names[p[0]], res.Names[p[1]], score)
			if colored && score > BandHigh {
				fmt.Fprintln(w, color.RedString(line))
			} else {
				fmt.Fprintln(w, line)
			}
		}
		fmt.Fprintln(w)
	}

	for _, d := range res.Details {
		fmt.Fprintf(w, "%s / %s (%.2f)\n", d.X, d.Y, d.Score)
		for _, m := range d.Matches {
			fmt.Fprintf(w, "  %-6.2f conf %.2f  %s ~ %s\n", m.Score, m.Confidence, m.A, m.B)
		}
		fmt.Fprintln(w)
	}

	if len(res.Incomplete) > 0 {
		if colored {
			color.New(color.Bold, color.FgYellow).Fprintln(w, "Incomplete comparisons")
		} else {
			fmt.Fprintln(w, "Incomplete comparisons")
		}
		for _, inc := range res.Incomplete {
			fmt.Fprintf(w, "  %s / %s: %s\n", inc.X, inc.Y, inc.Reason)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%d of %d pairs compared\n", res.Pairs, res.Expected)
	return nil
}

func (r *Report) RenderMarkdown(w io.Writer) error {
	res := r.Result

	if err := r.matrixTable(false).RenderMarkdown(w); err != nil {
		return err
	}

	if pairs := r.suspiciousPairs(); len(pairs) > 0 {
		fmt.Fprintln(w, "## Flagged pairs")
		fmt.Fprintln(w)
		for _, p := range pairs {
			fmt.Fprintf(w, "- **%s / %s**: %.2f\n",
				res.Names[p[0]], res.Names[p[1]], res.Matrix[p[0]][p[1]])
		}
		fmt.Fprintln(w)
	}

	for _, d := range res.Details {
		fmt.Fprintf(w, "### %s / %s (%.2f)\n\n", d.X, d.Y, d.Score)
		for _, m := range d.Matches {
			fmt.Fprintf(w, "- `%s` ~ `%s`: %.2f (confidence %.2f)\n", m.A, m.B, m.Score, m.Confidence)
		}
		fmt.Fprintln(w)
	}

	if len(res.Incomplete) > 0 {
		fmt.Fprintln(w, "## Incomplete comparisons")
		fmt.Fprintln(w)
		for _, inc := range res.Incomplete {
			fmt.Fprintf(w, "- %s / %s: %s\n", inc.X, inc.Y, inc.Reason)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%d of %d pairs compared\n", res.Pairs, res.Expected)
	return nil
}
