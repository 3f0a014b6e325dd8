// Package parsers turns pasted bank-portal exports into candidate
// transaction records.
//
// Exports arrive with unknown delimiters and column order, so parsing is a
// pipeline of independent steps over immutable rows:
//
//  1. Tokenize splits the blob into rows of trimmed cells, choosing one
//     delimiter for the whole blob.
//  2. Extract* functions each look for one field in a row. A miss is an
//     absent value, never an error.
//  3. Classifier assembles the extracted fields into a CandidateRecord
//     without cross-field validation.
//
// Example usage:
//
//	classifier, err := parsers.NewClassifier(parsers.DefaultConfig(), nil)
//	records, stats, err := classifier.ParseStatement(text)
package parsers

import (
	"strings"
	"unicode/utf8"

	"lottery-reconciliation-service/internal/models"
	"lottery-reconciliation-service/pkg/errors"
)

const bom = "\uFEFF"

// candidateDelimiters is also the tie-break order.
var candidateDelimiters = []rune{'\t', ',', ';', '|'}

// Tokenize splits statement text into rows. Blank input yields no rows.
// Text that is not valid UTF-8 or carries NUL bytes is rejected as binary.
func Tokenize(text string) ([]models.Row, error) {
	rows, _, err := tokenize(text)
	return rows, err
}

func tokenize(text string) ([]models.Row, rune, error) {
	if !utf8.ValidString(text) || strings.ContainsRune(text, 0) {
		return nil, 0, errors.InputError(errors.CodeInvalidEncoding, len(text), 0, nil)
	}

	trimmed := strings.TrimSpace(strings.TrimPrefix(text, bom))
	if trimmed == "" {
		return []models.Row{}, 0, nil
	}

	lines := nonEmptyLines(trimmed)
	delim := DetectDelimiter(lines)

	rows := make([]models.Row, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, SplitLine(line, delim))
	}
	return rows, delim, nil
}

// DetectDelimiter counts each candidate across the first
// DelimiterSampleLines lines and returns the most frequent one, tab when
// none occur. Ties go to the earlier candidate in tab, comma, semicolon,
// pipe order.
func DetectDelimiter(lines []string) rune {
	sample := lines
	if len(sample) > DelimiterSampleLines {
		sample = sample[:DelimiterSampleLines]
	}

	best, bestCount := '\t', 0
	for _, d := range candidateDelimiters {
		count := 0
		for _, line := range sample {
			count += strings.Count(line, string(d))
		}
		if count > bestCount {
			best, bestCount = d, count
		}
	}
	return best
}

// SplitLine splits one line and trims every cell. Only the comma delimiter
// understands quoting: a quote toggles quoted mode, a doubled quote inside
// quotes is a literal quote, and commas inside quotes do not split.
func SplitLine(line string, delim rune) models.Row {
	var cells []string
	if delim != ',' || !strings.Contains(line, `"`) {
		cells = strings.Split(line, string(delim))
	} else {
		cells = splitQuoted(line)
	}

	row := make(models.Row, len(cells))
	for i, c := range cells {
		row[i] = strings.TrimSpace(c)
	}
	return row
}

func splitQuoted(line string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(ch)
		}
	}
	return append(out, cur.String())
}

func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
