package common

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSON cleans and unmarshals a JSON object embedded in an LLM response.
// It handles the usual quirks: ```json fences, prose before or after the
// object, or a bare object.
func ParseJSON[T any](response string) (T, error) {
	var zero T
	jsonStr := extractObject(response)
	if jsonStr == "" {
		return zero, fmt.Errorf("no JSON object found in response")
	}

	var result T
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return zero, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	return result, nil
}

func extractObject(response string) string {
	// Prefer a fenced ```json block when present.
	if idx := strings.Index(response, "```json"); idx != -1 {
		rest := response[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end])
		}
	}

	// Otherwise take the first '{' through the last '}'.
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return ""
	}
	return response[start : end+1]
}
