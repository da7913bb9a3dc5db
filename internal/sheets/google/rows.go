package google

import (
	"fmt"
	"strings"

	ports "solarbooks/internal/sheets"
)

func headerRow() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

// lastColumn is the letter of the final Header column.
func lastColumn() string {
	return string(rune('A' + len(ports.Header) - 1))
}

// rowRange addresses a full mirrored row; n is 1-based.
func rowRange(sheet string, n int) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, n, lastColumn(), n)
}

// indexRows maps entry IDs in column A to their 1-based row number. The
// header and blank rows are skipped; the first occurrence of an ID wins.
func indexRows(values [][]any) map[string]int {
	out := make(map[string]int, len(values))
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(fmt.Sprint(row[0]))
		if id == "" || id == ports.Header[0] {
			continue
		}
		if _, seen := out[id]; !seen {
			out[id] = i + 1
		}
	}
	return out
}
