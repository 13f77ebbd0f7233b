package screening

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/xeipuuv/gojsonschema"

	"github.com/spigell/resume-screener/internal/candidate"
)

// ErrMalformedReply matches every *MalformedReplyError with errors.Is.
var ErrMalformedReply = errors.New("malformed reply")

// MalformedReplyError reports a model reply that does not fit the scoring schema.
type MalformedReplyError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *MalformedReplyError) Error() string {
	if e.Err == nil {
		return "malformed reply: " + e.Reason
	}
	return fmt.Sprintf("malformed reply: %s: %v", e.Reason, e.Err)
}

func (e *MalformedReplyError) Unwrap() error { return e.Err }

func (e *MalformedReplyError) Is(target error) bool { return target == ErrMalformedReply }

const replySchemaJSON = `{
  "type": "object",
  "required": ["score"],
  "properties": {
    "score": {
      "anyOf": [
        {"type": "number"},
        {"type": "string", "pattern": "^\\s*[-+]?[0-9]+(\\.[0-9]+)?\\s*$"}
      ]
    }
  }
}`

var replySchema = mustSchema(replySchemaJSON)

func mustSchema(source string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
	if err != nil {
		panic(fmt.Sprintf("compile reply schema: %v", err))
	}
	return schema
}

// Normalize turns a raw model reply into a candidate record with Score, Matches,
// Gaps and Summary set. Identity and excerpt fields are left to the caller.
// The reply is only ever decoded as JSON data.
func Normalize(raw string) (*candidate.Record, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, &MalformedReplyError{Raw: raw, Reason: "empty reply"}
	}

	var value any
	if err := json.Unmarshal([]byte(cleaned), &value); err != nil {
		return nil, &MalformedReplyError{Raw: raw, Reason: "reply is not valid json", Err: err}
	}

	data, ok := value.(map[string]any)
	if !ok {
		return nil, &MalformedReplyError{Raw: raw, Reason: fmt.Sprintf("top-level value is %s, not an object", jsonType(value))}
	}

	result, err := replySchema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return nil, &MalformedReplyError{Raw: raw, Reason: "validate reply", Err: err}
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, &MalformedReplyError{Raw: raw, Reason: strings.Join(issues, "; ")}
	}

	score, ok := coerceFloat(data["score"])
	if !ok {
		return nil, &MalformedReplyError{Raw: raw, Reason: "score is not numeric"}
	}

	return &candidate.Record{
		Score:   clampScore(score),
		Matches: limit(coerceList(data["matches"]), candidate.MaxListItems),
		Gaps:    limit(coerceList(data["gaps"]), candidate.MaxListItems),
		Summary: coerceList(data["summary"]),
	}, nil
}

// extractJSON strips surrounding whitespace and markdown code fences, with or
// without a language hint.
func extractJSON(raw string) string {
	text := strings.TrimSpace(raw)
	start := strings.Index(text, "```")
	if start == -1 {
		return text
	}

	body := text[start+3:]
	if end := strings.Index(body, "```"); end != -1 {
		body = body[:end]
	}

	if nl := strings.IndexByte(body, '\n'); nl != -1 && isLanguageHint(body[:nl]) {
		body = body[nl+1:]
	} else {
		body = strings.TrimLeftFunc(body, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsDigit(r)
		})
	}

	return strings.TrimSpace(body)
}

func isLanguageHint(line string) bool {
	for _, r := range strings.TrimSpace(line) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' && r != '+' {
			return false
		}
	}
	return true
}

func clampScore(score float64) int {
	rounded := math.Round(score)
	switch {
	case rounded < 0:
		return 0
	case rounded > 100:
		return 100
	default:
		return int(rounded)
	}
}

func coerceFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, !math.IsNaN(val) && !math.IsInf(val, 0)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// coerceList returns the string items of a JSON array; any other value yields an empty list.
func coerceList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		switch val := item.(type) {
		case nil:
			continue
		case string:
			result = append(result, val)
		default:
			encoded, err := json.Marshal(val)
			if err != nil {
				result = append(result, fmt.Sprintf("%v", val))
				continue
			}
			result = append(result, string(encoded))
		}
	}
	return result
}

func limit(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "an array"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
