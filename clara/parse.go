package clara

import (
	"fmt"
	"strings"
)

// extractJSON pulls the JSON object out of an LLM response. Models wrap
// their output in prose or code fences often enough that we just take
// everything between the first '{' and the last '}'.
func extractJSON(response string) (string, error) {
	response = strings.TrimSpace(response)

	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || startIdx >= endIdx {
		return "", fmt.Errorf("no valid JSON found in response")
	}

	return response[startIdx : endIdx+1], nil
}

// clamp01 bounds a score to the answer's numeric range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
