// Package utils holds small shared helpers, mostly around lenient JSON
// parsing of model output artifacts.
package utils

import (
	"encoding/json"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON attempts to fix common JSON defects in model output or
// hand-edited artifacts: missing quotes around keys, single quotes, unclosed
// arrays/objects, trailing commas, comments, stray markdown fences.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// ParseHJSON parses Human JSON (comments, unquoted keys, optional commas)
// and returns the equivalent standard JSON.
func ParseHJSON(input string) (string, error) {
	var value interface{}
	if err := hjson.Unmarshal([]byte(input), &value); err != nil {
		return "", fmt.Errorf("hjson parse failed: %w", err)
	}
	out, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("hjson remarshal failed: %w", err)
	}
	return string(out), nil
}

// SmartParse unmarshals input into target, trying progressively more lenient
// strategies: standard JSON, then repaired JSON, then Hjson. It is used when
// replaying saved extraction artifacts, which may have been truncated or
// edited by hand; the live extraction path keeps its stricter contract.
//
// The lenient strategies only count when they recover a JSON object or
// array. The repair library coerces almost any byte sequence into some
// valid JSON value, and accepting a bare string or number here would turn
// outright garbage into a silently empty result.
func SmartParse(input string, target interface{}) error {
	if err := json.Unmarshal([]byte(input), target); err == nil {
		return nil
	}

	if repaired, err := RepairJSON(input); err == nil && isStructured(repaired) {
		if err := json.Unmarshal([]byte(repaired), target); err == nil {
			return nil
		}
	}

	if converted, err := ParseHJSON(input); err == nil && isStructured(converted) {
		if err := json.Unmarshal([]byte(converted), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("all parsing strategies failed")
}

// isStructured reports whether the JSON text is an object or array at the
// top level.
func isStructured(jsonText string) bool {
	for _, c := range jsonText {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}
