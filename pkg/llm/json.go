package llm

import "strings"

// StripCodeFences removes markdown ```json fences models like to wrap output in.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ExtractJSONObject returns the outermost {...} span of a response, or "".
func ExtractJSONObject(response string) string {
	response = StripCodeFences(response)
	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")

	if startIdx == -1 || endIdx == -1 || endIdx <= startIdx {
		return ""
	}
	return response[startIdx : endIdx+1]
}
