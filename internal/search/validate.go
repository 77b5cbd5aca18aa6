package search

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	minQueryLimit     = 1
	maxQueryLimit     = 200
	defaultQueryLimit = 50
)

// Only statements that produce rows are allowed through. WITH is permitted
// as a leading keyword because generated queries often open with a CTE.
var allowedLeadingKeywords = map[string]bool{
	"SELECT": true,
	"WITH":   true,
}

// deniedKeywords is every mutating or administrative keyword the query
// engine understands. Matching is word-bounded so column names like
// "created_at" pass.
var deniedKeywords = regexp.MustCompile(
	`(?i)\b(INSERT|UPDATE|DELETE|DROP|CREATE|ALTER|REPLACE|ATTACH|DETACH|PRAGMA|VACUUM|REINDEX|TRIGGER|LOAD|EXPLAIN)\b`,
)

var selectKeyword = regexp.MustCompile(`(?i)\bSELECT\b`)
var limitKeyword = regexp.MustCompile(`(?i)\bLIMIT\b`)

// stringLiteral matches a single-quoted SQL string, including '' escapes.
var stringLiteral = regexp.MustCompile(`'(?:[^']|'')*'`)

// withoutLiterals blanks out quoted strings so keyword scans cannot match
// text inside them.
func withoutLiterals(q string) string {
	return stringLiteral.ReplaceAllString(q, "''")
}

// ValidateQuery checks a generated query against the read-only policy and
// returns it with a row limit guaranteed. limitHint caps the appended
// LIMIT; out-of-range hints are clamped.
func ValidateQuery(query string, limitHint int) (string, error) {
	q := strings.TrimSpace(query)
	q = strings.TrimSuffix(q, ";")
	q = strings.TrimSpace(q)
	if q == "" {
		return "", fmt.Errorf("empty query")
	}
	if strings.Contains(q, ";") {
		return "", fmt.Errorf("multiple statements are not allowed")
	}

	first := strings.ToUpper(strings.Fields(q)[0])
	if !allowedLeadingKeywords[first] {
		return "", fmt.Errorf("query must start with SELECT or WITH, got %s", first)
	}
	if !selectKeyword.MatchString(q) {
		return "", fmt.Errorf("query must contain a SELECT clause")
	}
	if m := deniedKeywords.FindString(q); m != "" {
		return "", fmt.Errorf("keyword %s is not allowed in read-only queries", strings.ToUpper(m))
	}

	if !limitKeyword.MatchString(withoutLiterals(q)) {
		limit := limitHint
		if limit <= 0 {
			limit = defaultQueryLimit
		}
		if limit < minQueryLimit {
			limit = minQueryLimit
		}
		if limit > maxQueryLimit {
			limit = maxQueryLimit
		}
		q = fmt.Sprintf("%s LIMIT %d", q, limit)
	}
	return q, nil
}
