package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// JsonRepairStats tracks statistics about JSON repair operations
type JsonRepairStats struct {
	OriginalBytes    int           `json:"original_bytes"`
	RepairedBytes    int           `json:"repaired_bytes"`
	CommentsLost     int           `json:"comments_lost"`
	ErrorsFixed      int           `json:"errors_fixed"`
	RepairTime       time.Duration `json:"repair_time"`
	RepairStrategies []string      `json:"repair_strategies"`
	WasRepaired      bool          `json:"was_repaired"`
}

type repairStrategy struct {
	name  string
	apply func(s string, stats *JsonRepairStats) string
}

// repairStrategies run in order; each one only rewrites input it recognises.
// The jsonrepair library runs last, and only if the result is still invalid.
var repairStrategies = []repairStrategy{
	{"control_chars", func(s string, _ *JsonRepairStats) string { return EscapeStringControlChars(s) }},
	{"trailing_commas", func(s string, _ *JsonRepairStats) string { return removeTrailingCommas(s) }},
	{"comments_removed", removeComments},
	{"smart_quotes", func(s string, _ *JsonRepairStats) string { return replaceSmartQuotes(s) }},
	{"completion", func(s string, _ *JsonRepairStats) string { return completeJSON(s) }},
}

// RepairJSON attempts to repair malformed JSON produced by a model. Valid
// input is returned unchanged.
func RepairJSON(raw string) (repaired string, stats JsonRepairStats, err error) {
	startTime := time.Now()
	stats.OriginalBytes = len(raw)
	defer func() {
		stats.RepairedBytes = len(repaired)
		stats.RepairTime = time.Since(startTime)
	}()

	if json.Valid([]byte(raw)) {
		return raw, stats, nil
	}

	stats.WasRepaired = true
	repaired = raw

	for _, strategy := range repairStrategies {
		next := strategy.apply(repaired, &stats)
		if next == repaired {
			continue
		}
		repaired = next
		stats.RepairStrategies = append(stats.RepairStrategies, strategy.name)
		stats.ErrorsFixed++
		if json.Valid([]byte(repaired)) {
			return repaired, stats, nil
		}
	}

	libraryRepaired, libraryErr := jsonrepair.JSONRepair(repaired)
	if libraryErr == nil && libraryRepaired != repaired {
		repaired = libraryRepaired
		stats.RepairStrategies = append(stats.RepairStrategies, "jsonrepair_library")
		stats.ErrorsFixed++
	}

	if !json.Valid([]byte(repaired)) {
		return repaired, stats, fmt.Errorf("JSON repair failed after %d strategies", len(stats.RepairStrategies))
	}
	return repaired, stats, nil
}

// EscapeStringControlChars escapes raw newlines, carriage returns and tabs
// that appear inside JSON string literals. Whitespace between tokens is left
// alone, so already-valid JSON is returned unchanged.
func EscapeStringControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			b.WriteByte(c)
			continue
		}
		switch {
		case escaped:
			escaped = false
			b.WriteByte(c)
		case c == '\\':
			escaped = true
			b.WriteByte(c)
		case c == '"':
			inString = false
			b.WriteByte(c)
		case c == '\n':
			b.WriteString(`\n`)
		case c == '\r':
			b.WriteString(`\r`)
		case c == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

var (
	trailingCommaObject = regexp.MustCompile(`,\s*}`)
	trailingCommaArray  = regexp.MustCompile(`,\s*]`)
	blockComment        = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineComment         = regexp.MustCompile(`(?m)^\s*//.*$`)
)

// removeTrailingCommas removes trailing commas before } and ]
func removeTrailingCommas(s string) string {
	s = trailingCommaObject.ReplaceAllString(s, "}")
	return trailingCommaArray.ReplaceAllString(s, "]")
}

// removeComments drops whole-line // comments and /* */ blocks. Inline //
// is kept because URLs in post text contain it.
func removeComments(s string, stats *JsonRepairStats) string {
	n := len(blockComment.FindAllStringIndex(s, -1)) + len(lineComment.FindAllStringIndex(s, -1))
	if n == 0 {
		return s
	}
	stats.CommentsLost += n
	s = blockComment.ReplaceAllString(s, "")
	return lineComment.ReplaceAllString(s, "")
}

// replaceSmartQuotes turns typographic double quotes used as JSON
// delimiters back into ASCII quotes.
func replaceSmartQuotes(s string) string {
	if !strings.ContainsAny(s, "“”") || strings.Contains(s, `"`) {
		return s
	}
	return strings.NewReplacer("“", `"`, "”", `"`).Replace(s)
}

// completeJSON closes a truncated string and any unclosed objects or arrays
// in last-opened-first-closed order.
func completeJSON(s string) string {
	s = strings.TrimSpace(s)
	var stack []byte
	inString, escaped := false, false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if inString {
		s += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		s += string(stack[i])
	}
	return s
}
