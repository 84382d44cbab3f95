package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mattn/go-runewidth"

	"github.com/daryltucker/gauge-bench/internal/model"
)

// PrintLeaderboard renders rows as an aligned, ranked table.
// Widths are measured in terminal cells so wide model names stay aligned.
func PrintLeaderboard(w io.Writer, rows []model.LeaderboardRow) error {
	header := []string{"#", "MODEL", "CREATOR", "SCORE", "UNITS"}
	table := [][]string{header}
	for i, row := range rows {
		table = append(table, []string{
			strconv.Itoa(i + 1),
			row.ModelID,
			row.ModelCreator,
			FormatPercent(row.Score),
			FormatPercent(row.UnitsAccuracy),
		})
	}

	widths := make([]int, len(header))
	for _, line := range table {
		for i, cell := range line {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	for _, line := range table {
		out := ""
		for i, cell := range line {
			if i > 0 {
				out += "  "
			}
			// numeric columns right-aligned
			if i == 0 || i >= 3 {
				out += runewidth.FillLeft(cell, widths[i])
			} else {
				out += runewidth.FillRight(cell, widths[i])
			}
		}
		if _, err := fmt.Fprintln(w, out); err != nil {
			return err
		}
	}
	return nil
}
