package text2sql

import (
	"fmt"
	"regexp"
	"strings"
)

// allowedTables is the whitelist of tables a generated query may read.
var allowedTables = map[string]bool{
	"users":    true,
	"messages": true,
}

// forbiddenKeywords are statement kinds a generated query must never
// contain, even inside subqueries.
var forbiddenKeywords = []string{"DELETE", "UPDATE", "DROP", "ALTER", "CREATE", "INSERT"}

var (
	fenceRe    = regexp.MustCompile("(?i)```\\s*sql\\s*|```\\s*")
	lineRe     = regexp.MustCompile(`(?m)--.*$`)
	blockRe    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	selectRe   = regexp.MustCompile(`(?i)^\s*SELECT\b`)
	fromRe     = regexp.MustCompile(`(?i)\bFROM\s+(\w+)`)
	keywordRes = func() map[string]*regexp.Regexp {
		res := make(map[string]*regexp.Regexp, len(forbiddenKeywords))
		for _, kw := range forbiddenKeywords {
			res[kw] = regexp.MustCompile(`(?i)\b` + kw + `\b`)
		}
		return res
	}()
)

// Sanitize strips markdown code fences and SQL comments from a
// model-generated query.
func Sanitize(sql string) string {
	cleaned := fenceRe.ReplaceAllString(sql, "")
	cleaned = lineRe.ReplaceAllString(cleaned, "")
	cleaned = blockRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// Validate checks that the sanitized query is a plain SELECT over the
// whitelisted tables. It returns a descriptive error when the query is
// rejected; the caller maps that to a 400.
func Validate(sql string) error {
	if !selectRe.MatchString(sql) {
		return fmt.Errorf("only SELECT queries are allowed")
	}

	for _, kw := range forbiddenKeywords {
		if keywordRes[kw].MatchString(sql) {
			return fmt.Errorf("forbidden keyword %s", kw)
		}
	}

	for _, match := range fromRe.FindAllStringSubmatch(sql, -1) {
		table := strings.ToLower(match[1])
		if !allowedTables[table] {
			return fmt.Errorf("table %s is not allowed", table)
		}
	}

	return nil
}
