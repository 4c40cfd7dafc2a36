package llm

import (
	"encoding/json"
	"strings"
)

// contentStrategy is one way of pulling post pairs out of a candidate text.
// Strategies never fail loudly: they either return a fully valid result or
// report that they found nothing.
type contentStrategy struct {
	name      string
	multiOnly bool
	run       func(text string, variants int) ([]GeneratedContent, bool)
}

// contentStrategies are tried in order against each candidate.
var contentStrategies = []contentStrategy{
	{name: "array", multiOnly: true, run: firstArray},
	{name: "object", run: lastObject},
	{name: "greedy_object", run: greedyObject},
	{name: "repaired_array", multiOnly: true, run: repairedArray},
	{name: "repaired_object", run: repairedObject},
}

// firstArray parses the first array literal whose elements are all valid
// post pairs and whose length matches the requested variant count.
func firstArray(text string, variants int) ([]GeneratedContent, bool) {
	for _, span := range balancedSpans(text, '[', ']') {
		if contents, ok := parseArray(span, variants); ok {
			return contents, true
		}
	}
	return nil, false
}

// lastObject scans object literals from the end so that a trailing object
// wins over example objects quoted earlier in prose.
func lastObject(text string, _ int) ([]GeneratedContent, bool) {
	spans := balancedSpans(text, '{', '}')
	for i := len(spans) - 1; i >= 0; i-- {
		if content, ok := parseObject(spans[i]); ok {
			return []GeneratedContent{content}, true
		}
	}
	return nil, false
}

// greedyObject takes everything from the first '{' to the last '}', which
// survives unbalanced braces inside prose around the JSON.
func greedyObject(text string, _ int) ([]GeneratedContent, bool) {
	span, ok := greedySpan(text, '{', '}')
	if !ok {
		return nil, false
	}
	if content, ok := parseObject(span); ok {
		return []GeneratedContent{content}, true
	}
	return nil, false
}

func repairedArray(text string, variants int) ([]GeneratedContent, bool) {
	span, ok := openSpan(text, '[')
	if !ok {
		return nil, false
	}
	repaired, _, err := RepairJSON(span)
	if err != nil {
		return nil, false
	}
	return parseArray(repaired, variants)
}

func repairedObject(text string, _ int) ([]GeneratedContent, bool) {
	span, ok := openSpan(text, '{')
	if !ok {
		return nil, false
	}
	repaired, _, err := RepairJSON(span)
	if err != nil {
		return nil, false
	}
	content, ok := parseObject(repaired)
	if !ok {
		return nil, false
	}
	return []GeneratedContent{content}, true
}

// rawContent uses pointers to tell absent fields from present ones.
type rawContent struct {
	LinkedIn *string `json:"linkedin"`
	X        *string `json:"x"`
}

func (r rawContent) valid() (GeneratedContent, bool) {
	if r.LinkedIn == nil || r.X == nil || *r.LinkedIn == "" || *r.X == "" {
		return GeneratedContent{}, false
	}
	return GeneratedContent{LinkedIn: *r.LinkedIn, X: *r.X}, true
}

func parseObject(span string) (GeneratedContent, bool) {
	var raw rawContent
	if !unmarshalLenient(span, &raw) {
		return GeneratedContent{}, false
	}
	return raw.valid()
}

func parseArray(span string, variants int) ([]GeneratedContent, bool) {
	var raws []rawContent
	if !unmarshalLenient(span, &raws) || len(raws) != variants {
		return nil, false
	}
	contents := make([]GeneratedContent, 0, len(raws))
	for _, r := range raws {
		c, ok := r.valid()
		if !ok {
			return nil, false
		}
		contents = append(contents, c)
	}
	return contents, true
}

// unmarshalLenient retries with string control characters escaped.
func unmarshalLenient(span string, v interface{}) bool {
	if json.Unmarshal([]byte(span), v) == nil {
		return true
	}
	escaped := EscapeStringControlChars(span)
	if escaped == span {
		return false
	}
	return json.Unmarshal([]byte(escaped), v) == nil
}

// balancedSpans returns every top-level open...close span in text. Brackets
// inside JSON string literals do not count. Text between spans is prose, so
// quotes there are not tracked.
func balancedSpans(text string, open, close byte) []string {
	var spans []string
	for i := 0; i < len(text); i++ {
		if text[i] != open {
			continue
		}
		if end, ok := matchingClose(text, i, open, close); ok {
			spans = append(spans, text[i:end+1])
			i = end
		}
	}
	return spans
}

func matchingClose(text string, start int, open, close byte) (int, bool) {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
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
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

func greedySpan(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// openSpan returns text from the first open byte through the closing byte
// that balances it. Output that stops inside a string or before its last
// bracket is a truncated answer and yields no span, so repair never has to
// invent the end of a post.
func openSpan(text string, open byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}
	closeByte := byte('}')
	if open == '[' {
		closeByte = ']'
	}
	end, ok := matchingClose(text, start, open, closeByte)
	if !ok {
		return "", false
	}
	return text[start : end+1], true
}
