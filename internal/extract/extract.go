// Package extract recovers structured JSON from free-form language model
// output. Model responses interleave explanatory prose, partial JSON from
// intermediate tool calls and the final answer, with no formatting
// guarantee; a single-pattern regex is not enough. Extract runs an ordered
// chain of fallback tiers and is deterministic and side-effect free:
// failure is a return value, never a panic.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNoJSON signals that none of the extraction tiers recovered a JSON
// object from the input.
var ErrNoJSON = errors.New("no JSON object found in response")

// NoJSONError wraps ErrNoJSON and carries the raw text for diagnostics.
type NoJSONError struct {
	Raw string
}

func (e *NoJSONError) Error() string {
	preview := e.Raw
	if len(preview) > 200 {
		preview = preview[:200] + "..."
	}
	return fmt.Sprintf("no JSON object found in response (%d bytes): %q", len(e.Raw), preview)
}

func (e *NoJSONError) Unwrap() error { return ErrNoJSON }

// Extract recovers the best-effort JSON object embedded in s.
//
// Tiers, each attempted only when the previous ones fail:
//  1. repair the whole string and parse it strictly;
//  2. fenced code blocks labeled json;
//  3. fenced code blocks with any label;
//  4. brace-balanced scan, preferring the candidate that starts latest in
//     the text (trailing JSON is more likely the model's final answer than
//     brace-like text inside earlier reasoning).
//
// Among fenced candidates the longest parseable one wins; in the brace
// scan recency takes priority over length.
func Extract(s string) (map[string]interface{}, error) {
	if strings.TrimSpace(s) == "" {
		return nil, &NoJSONError{Raw: s}
	}

	// Tier 1: cleanup + direct parse.
	if obj, ok := parseObject(Repair(s)); ok {
		return obj, nil
	}

	// Tier 2: fenced blocks labeled json.
	for _, block := range fencedBlocks(s, "json") {
		if obj, ok := parseObject(Repair(block)); ok {
			return obj, nil
		}
	}

	// Tier 3: any fenced block.
	for _, block := range fencedBlocks(s, "") {
		if obj, ok := parseObject(Repair(block)); ok {
			return obj, nil
		}
	}

	// Tier 4: brace-balanced scan, latest start first.
	for _, candidate := range balancedCandidates(s) {
		if obj, ok := parseObject(Repair(candidate)); ok {
			return obj, nil
		}
	}

	return nil, &NoJSONError{Raw: s}
}

// parseObject attempts a strict parse of s as a JSON object. Top-level
// arrays and scalars are rejected: stage responses are always objects.
func parseObject(s string) (map[string]interface{}, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return nil, false
	}
	var obj map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	// Reject trailing garbage after the object.
	if dec.More() {
		return nil, false
	}
	return obj, true
}

// fencedBlocks returns the contents of fenced code blocks in s, longest
// first. lang filters on the fence info string (case-insensitive); an
// empty lang accepts any block. Both ``` and ~~~ fences are supported.
func fencedBlocks(s, lang string) []string {
	var blocks []string
	for _, fence := range []string{"```", "~~~"} {
		start := 0
		for {
			i := strings.Index(s[start:], fence)
			if i == -1 {
				break
			}
			i += start
			afterFence := i + len(fence)
			nl := strings.IndexByte(s[afterFence:], '\n')
			if nl == -1 {
				break
			}
			info := strings.ToLower(strings.TrimSpace(s[afterFence : afterFence+nl]))
			contentStart := afterFence + nl + 1
			j := strings.Index(s[contentStart:], fence)
			if j == -1 {
				break
			}
			closeIdx := contentStart + j
			if lang == "" || info == lang {
				blocks = append(blocks, strings.TrimSpace(s[contentStart:closeIdx]))
			}
			start = closeIdx + len(fence)
		}
	}
	sort.SliceStable(blocks, func(a, b int) bool { return len(blocks[a]) > len(blocks[b]) })
	return blocks
}

// balancedCandidates enumerates brace-balanced substrings of s, walking
// the opening brace positions in reverse so later candidates come first.
func balancedCandidates(s string) []string {
	var opens []int
	for i := 0; i < len(s); i++ {
		if s[i] == '{' {
			opens = append(opens, i)
		}
	}
	var out []string
	for k := len(opens) - 1; k >= 0; k-- {
		if candidate, ok := balancedFrom(s, opens[k]); ok {
			out = append(out, candidate)
		}
	}
	return out
}

// balancedFrom walks forward from an opening brace counting nesting depth,
// ignoring braces inside strings and escape sequences, and returns the
// substring up to the matching close.
func balancedFrom(s string, start int) (string, bool) {
	if start < 0 || start >= len(s) || s[start] != '{' {
		return "", false
	}
	depth := 0
	inString := false
	escape := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			if escape {
				escape = false
				continue
			}
			switch c {
			case '\\':
				escape = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
			if depth < 0 {
				return "", false
			}
		}
	}
	return "", false
}
