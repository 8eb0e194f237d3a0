// Package testkit holds invariant checks shared by tests and fuzz harnesses.
package testkit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type entry struct {
	Type     string           `json:"type"`
	Kind     string           `json:"kind"`
	Property string           `json:"property"`
	Range    *string          `json:"range"`
	Value    *string          `json:"value"`
	Children *json.RawMessage `json:"children"`
}

// CheckTreeInvariants validates serialized syntax tree output against a
// source of size bytes:
// 1) the document is a JSON array of entries
// 2) nodes and tokens carry a "start-end" range inside [0, size], values never do
// 3) tokens and values name their property and carry a value
// 4) a children array, when present, is non-empty
func CheckTreeInvariants(data []byte, size uint32) error {
	var roots []json.RawMessage
	if err := json.Unmarshal(data, &roots); err != nil {
		return fmt.Errorf("output is not a JSON array: %w", err)
	}
	if len(roots) > 1 {
		return fmt.Errorf("got %d roots, want at most one", len(roots))
	}
	return checkEntries(roots, size, "$")
}

func checkEntries(raw []json.RawMessage, size uint32, path string) error {
	for i, r := range raw {
		at := fmt.Sprintf("%s[%d]", path, i)
		var e entry
		if err := json.Unmarshal(r, &e); err != nil {
			return fmt.Errorf("%s: %w", at, err)
		}
		switch e.Type {
		case "node":
			if e.Kind == "" {
				return fmt.Errorf("%s: node without kind", at)
			}
			if err := checkRange(e.Range, size); err != nil {
				return fmt.Errorf("%s (%s): %w", at, e.Kind, err)
			}
		case "token":
			if err := checkRange(e.Range, size); err != nil {
				return fmt.Errorf("%s (%s): %w", at, e.Property, err)
			}
			fallthrough
		case "value":
			if e.Type == "value" && e.Range != nil {
				return fmt.Errorf("%s: value %s has a range", at, e.Property)
			}
			if e.Property == "" || e.Value == nil {
				return fmt.Errorf("%s: %s without property or value", at, e.Type)
			}
		default:
			return fmt.Errorf("%s: unexpected entry type %q", at, e.Type)
		}
		if e.Children == nil {
			continue
		}
		var children []json.RawMessage
		if err := json.Unmarshal(*e.Children, &children); err != nil {
			return fmt.Errorf("%s: children: %w", at, err)
		}
		if len(children) == 0 {
			return fmt.Errorf("%s: empty children array", at)
		}
		if err := checkEntries(children, size, at+".children"); err != nil {
			return err
		}
	}
	return nil
}

func checkRange(r *string, size uint32) error {
	if r == nil {
		return fmt.Errorf("missing range")
	}
	a, b, ok := strings.Cut(*r, "-")
	if !ok {
		return fmt.Errorf("malformed range %q", *r)
	}
	start, err := strconv.ParseUint(a, 10, 32)
	if err != nil {
		return fmt.Errorf("malformed range %q", *r)
	}
	end, err := strconv.ParseUint(b, 10, 32)
	if err != nil {
		return fmt.Errorf("malformed range %q", *r)
	}
	if start > end || end > uint64(size) {
		return fmt.Errorf("range %q outside [0, %d]", *r, size)
	}
	return nil
}
