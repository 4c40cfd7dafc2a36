package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hintbot/internal/logging"
)

// GeneratedContent is one LinkedIn/X post pair.
type GeneratedContent struct {
	LinkedIn string `json:"linkedin"`
	X        string `json:"x"`
}

// Shape is the kind of answer a prompt asked for.
type Shape int

const (
	ShapeJSONContent Shape = iota
	ShapePlainText
)

// ExcerptLimit bounds raw output quoted in errors and logs.
const ExcerptLimit = 500

var (
	// ErrDecode matches every *DecodeError.
	ErrDecode = errors.New("could not decode model output")
	// ErrModelReported is returned when the CLI envelope flags an error.
	ErrModelReported = errors.New("model reported an error")
)

// DecodeError reports output that matched no recognised shape. Excerpt is
// bounded by ExcerptLimit.
type DecodeError struct {
	Reason  string
	Excerpt string
	cause   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode model output: %s (output: %q)", e.Reason, e.Excerpt)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode || (e.cause != nil && errors.Is(e.cause, target))
}

func newDecodeError(reason, raw string, cause error) *DecodeError {
	return &DecodeError{Reason: reason, Excerpt: logging.Excerpt(raw, ExcerptLimit), cause: cause}
}

// Decoded is the outcome of a successful decode.
type Decoded struct {
	Contents []GeneratedContent
	Text     string
	// Strategy names the stage that produced the result, for logging.
	Strategy string
}

// Decoder turns raw model output into structured content or plain text.
type Decoder struct {
	logger zerolog.Logger
}

// NewDecoder creates a decoder that logs through logger.
func NewDecoder(logger zerolog.Logger) *Decoder {
	return &Decoder{logger: logger}
}

// Decode runs the envelope, fence and candidate stages in order and
// returns the first valid result.
func (d *Decoder) Decode(raw string, variants int, shape Shape) (Decoded, error) {
	working, err := unwrapEnvelope(raw)
	if err != nil {
		return Decoded{}, err
	}

	if shape == ShapePlainText {
		text := strings.TrimSpace(working)
		if text == "" {
			return Decoded{}, newDecodeError("empty response", raw, nil)
		}
		return Decoded{Text: text, Strategy: "plain_text"}, nil
	}

	if variants < 1 {
		variants = 1
	}

	for _, c := range buildCandidates(working) {
		for _, s := range contentStrategies {
			if s.multiOnly && variants < 2 {
				continue
			}
			contents, ok := s.run(c.text, variants)
			if !ok {
				continue
			}
			strategy := c.source + "/" + s.name
			d.logger.Debug().
				Str("strategy", strategy).
				Int("variants", len(contents)).
				Msg("decoded model output")
			return Decoded{Contents: contents, Strategy: strategy}, nil
		}
	}

	d.logger.Warn().
		Int("raw_bytes", len(raw)).
		Int("variants", variants).
		Str("excerpt", logging.Excerpt(raw, ExcerptLimit)).
		Msg("model output matched no strategy")
	return Decoded{}, newDecodeError("no valid linkedin/x content found", raw, nil)
}

// DecodeContent decodes JSON content expecting the given number of variants.
func (d *Decoder) DecodeContent(raw string, variants int) ([]GeneratedContent, error) {
	res, err := d.Decode(raw, variants, ShapeJSONContent)
	if err != nil {
		return nil, err
	}
	return res.Contents, nil
}

// DecodeText decodes a plain-text answer.
func (d *Decoder) DecodeText(raw string) (string, error) {
	res, err := d.Decode(raw, 1, ShapePlainText)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

type envelope struct {
	IsError bool            `json:"is_error"`
	Result  json.RawMessage `json:"result"`
}

// unwrapEnvelope replaces raw output with the envelope's result field when
// the whole output is a JSON object carrying one. Anything else passes
// through untouched.
func unwrapEnvelope(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return raw, nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil || env.Result == nil {
		return raw, nil
	}

	result := string(env.Result)
	var s string
	if err := json.Unmarshal(env.Result, &s); err == nil {
		result = s
	}

	if env.IsError {
		return "", newDecodeError("model reported an error", result, ErrModelReported)
	}
	return result, nil
}

type candidate struct {
	source string
	text   string
}

var fencePattern = regexp.MustCompile("(?s)```[A-Za-z0-9_+-]*[ \t]*\r?\n?(.*?)```")

// buildCandidates lists the texts to parse: every fenced block first, then
// the whole working text. Fenced contents have raw control characters inside
// string literals re-escaped, since unwrapping the envelope turns escaped
// newlines into literal ones. The working text is left as is because prose
// around the JSON makes string boundaries unknowable; its spans are escaped
// individually when parsed.
func buildCandidates(working string) []candidate {
	var out []candidate
	for _, m := range fencePattern.FindAllStringSubmatch(working, -1) {
		inner := strings.TrimSpace(m[1])
		if inner != "" {
			out = append(out, candidate{source: "fenced", text: EscapeStringControlChars(inner)})
		}
	}
	out = append(out, candidate{source: "text", text: working})
	return out
}
