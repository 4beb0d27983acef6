// Package ingest turns raw delimited statement exports into normalized
// transaction rows with deterministic identity. Parsing is best-effort by
// design: malformed rows are dropped and counted, never surfaced as errors,
// because real-world financial exports are routinely irregular.
package ingest

import (
	"strings"
)

// SplitRows tokenizes raw delimited text into rows of trimmed cells.
// The delimiter is sniffed once from the first non-blank line: tab wins
// when its count is at least both others, semicolon beats comma when it
// occurs more often, comma is the default. Blank lines are dropped and
// empty input yields no rows.
func SplitRows(text string) [][]string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil
	}

	delim := detectDelimiter(lines[0])
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, splitLine(line, delim))
	}
	return rows
}

func detectDelimiter(sample string) byte {
	commas := strings.Count(sample, ",")
	semicolons := strings.Count(sample, ";")
	tabs := strings.Count(sample, "\t")

	switch {
	case tabs >= commas && tabs >= semicolons:
		return '\t'
	case semicolons > commas:
		return ';'
	default:
		return ','
	}
}

// splitLine splits one line on delim, honoring double-quote quoting.
// A doubled quote inside a quoted span is a literal quote; delimiters
// inside quotes are literal text.
func splitLine(line string, delim byte) []string {
	var cells []string
	var current strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		if ch == '"' {
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				current.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
			continue
		}
		if ch == delim && !inQuotes {
			cells = append(cells, strings.TrimSpace(current.String()))
			current.Reset()
			continue
		}
		current.WriteByte(ch)
	}
	cells = append(cells, strings.TrimSpace(current.String()))
	return cells
}
