package memory

import (
	"strings"
	"unicode/utf8"

	"agentic-rag-be/pkg/rag/state"
)

// meaningful keeps human and AI turns worth summarizing: longer than 15
// characters, not an injected context block, not a validation echo.
// Each kept text is cut to maxLen characters.
func meaningful(messages []state.Message, maxLen int) []string {
	var out []string
	for _, m := range messages {
		if m.Type != state.HumanMessage && m.Type != state.AIMessage {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if utf8.RuneCountInString(content) <= 15 {
			continue
		}
		if strings.HasPrefix(content, "Reference context:") || strings.Contains(content, "Validation") {
			continue
		}
		out = append(out, truncate(content, maxLen))
	}
	return out
}

func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen]) + "..."
}

func tail[T any](s []T, n int) []T {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}
