package genner

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// =============================================================================
// COMPLETION EXTRACTION
// =============================================================================
//
// Models wrap their answers in whatever framing they please. Extraction is an
// ordered chain of strategies; the first one that yields something wins, and
// exhaustion is a *GenerationError rather than a panic or sentinel string.

type codeStrategy struct {
	name string
	fn   func(raw string) (string, bool)
}

var codeStrategies = []codeStrategy{
	{"fenced block", extractFencedCode},
	{"json code field", extractJSONCodeField},
}

// ExtractCode pulls a program out of a raw completion.
func ExtractCode(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", &GenerationError{Op: "code extraction", Raw: raw, Err: fmt.Errorf("empty completion")}
	}
	for _, s := range codeStrategies {
		if code, ok := s.fn(raw); ok {
			return code, nil
		}
	}
	return "", &GenerationError{Op: "code extraction", Raw: raw, Err: fmt.Errorf("no strategy matched")}
}

type listStrategy struct {
	name string
	fn   func(raw string) ([]string, bool)
}

var listStrategies = []listStrategy{
	{"fenced json", extractFencedJSONList},
	{"bare json array", extractBareJSONList},
	{"enumerated lines", extractEnumeratedLines},
}

// ExtractList pulls a list of strings out of a raw completion.
func ExtractList(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &GenerationError{Op: "list extraction", Raw: raw, Err: fmt.Errorf("empty completion")}
	}
	for _, s := range listStrategies {
		if items, ok := s.fn(raw); ok {
			return items, nil
		}
	}
	return nil, &GenerationError{Op: "list extraction", Raw: raw, Err: fmt.Errorf("no strategy matched")}
}

var fencedBlockRe = regexp.MustCompile("(?s)```([a-zA-Z0-9]*)\n(.*?)```")

// extractFencedCode returns the first fenced block, preferring a block
// tagged with a language over an untagged one.
func extractFencedCode(raw string) (string, bool) {
	matches := fencedBlockRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return "", false
	}
	for _, m := range matches {
		if m[1] != "" && m[1] != "json" {
			return strings.TrimSpace(m[2]), true
		}
	}
	for _, m := range matches {
		if m[1] == "" {
			if code := strings.TrimSpace(m[2]); code != "" {
				return code, true
			}
		}
	}
	return "", false
}

func extractJSONCodeField(raw string) (string, bool) {
	obj, ok := firstJSONObject(raw)
	if !ok {
		return "", false
	}
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil || strings.TrimSpace(payload.Code) == "" {
		return "", false
	}
	return strings.TrimSpace(payload.Code), true
}

func extractFencedJSONList(raw string) ([]string, bool) {
	matches := fencedBlockRe.FindAllStringSubmatch(raw, -1)
	for _, m := range matches {
		if m[1] != "json" && m[1] != "" {
			continue
		}
		if items, ok := decodeJSONList(strings.TrimSpace(m[2])); ok {
			return items, true
		}
	}
	return nil, false
}

func extractBareJSONList(raw string) ([]string, bool) {
	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return nil, false
	}
	return decodeJSONList(raw[start : end+1])
}

var enumeratedLineRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s+(.+)$`)

func extractEnumeratedLines(raw string) ([]string, bool) {
	var items []string
	for _, line := range strings.Split(raw, "\n") {
		if m := enumeratedLineRe.FindStringSubmatch(line); m != nil {
			items = append(items, strings.TrimSpace(m[1]))
		}
	}
	if len(items) == 0 {
		return nil, false
	}
	return items, true
}

// decodeJSONList accepts either a bare array of strings or an object with a
// "strategies" array.
func decodeJSONList(s string) ([]string, bool) {
	var arr []string
	if err := json.Unmarshal([]byte(s), &arr); err == nil && len(arr) > 0 {
		return cleanItems(arr), true
	}
	var obj struct {
		Strategies []string `json:"strategies"`
	}
	if err := json.Unmarshal([]byte(s), &obj); err == nil && len(obj.Strategies) > 0 {
		return cleanItems(obj.Strategies), true
	}
	return nil, false
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func firstJSONObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}
