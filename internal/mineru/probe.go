// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package mineru

import "strconv"

// The MinerU response schema is not contractually fixed, so every field we
// care about is looked up through an ordered list of candidate paths,
// first match wins. Keep the lists in sync with what the service is
// observed to return rather than assuming one canonical shape.
var (
	taskIDPaths = [][]string{
		{"task_id"},
		{"data", "task_id"},
		{"id"},
		{"data", "id"},
	}

	statusPaths = [][]string{
		{"status"},
		{"data", "status"},
	}

	errorPaths = [][]string{
		{"error"},
		{"data", "error"},
		{"message"},
	}

	markdownPaths = [][]string{
		{"md_content"},
		{"md"},
		{"data", "md_content"},
		{"data", "md"},
		{"result", "md_content"},
	}
)

// probeString walks each candidate path through nested JSON objects and
// returns the first non-empty string value found.
func probeString(m map[string]any, paths [][]string) (string, bool) {
	for _, path := range paths {
		if v, ok := lookup(m, path); ok {
			if s := asString(v); s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// lookup descends the nested maps along path. Intermediate values that are
// not objects terminate the descent.
func lookup(m map[string]any, path []string) (any, bool) {
	var current any = m
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// asString renders a JSON leaf as a string. Task identifiers have been seen
// both as strings and as numbers.
func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
