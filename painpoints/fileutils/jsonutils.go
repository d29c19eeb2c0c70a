package fileutils

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ExtractModelJSON returns the JSON object contained in a model response, with a small amount of
// robustness for cases where the model wraps the JSON in prose or markdown fences.
func ExtractModelJSON(outputText string) ([]byte, error) {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return nil, io.ErrUnexpectedEOF
	}

	// Fast path: valid JSON as-is.
	if json.Valid([]byte(s)) {
		return []byte(s), nil
	}

	// Fallback: the outermost {...} span.
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	if end == -1 || end <= start {
		return nil, io.ErrUnexpectedEOF
	}

	sub := s[start : end+1]
	if !json.Valid([]byte(sub)) {
		return nil, fmt.Errorf("invalid JSON object in model output (len=%d)", len(sub))
	}
	return []byte(sub), nil
}
