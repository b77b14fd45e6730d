package clara

import "strings"

// RefineQuery merges the original query with clarification answers into a
// single retrieval query. Answers are appended in the order they were
// given so their qualifying terms sharpen the similarity search. With no
// answers the original query is returned unchanged.
func RefineQuery(original string, answers []string) string {
	if len(answers) == 0 {
		return original
	}

	var sb strings.Builder
	sb.WriteString(original)
	for _, a := range answers {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(a)
	}
	return sb.String()
}
