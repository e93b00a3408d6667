package memory

import (
	"context"
	"strings"
	"unicode/utf8"

	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/llm"
)

const (
	EmptySummary = "Không có tin nhắn để tóm tắt"
	// FailedSummary is returned when the model call fails. It never passes
	// Acceptable, so callers fall back to their own summary.
	FailedSummary = "Cuộc hội thoại về các chủ đề công nghệ"

	summaryWindow = 15
)

type Summarizer struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewSummarizer(llmProvider llm.LLMProvider, log logger.ILogger) *Summarizer {
	return &Summarizer{llmProvider: llmProvider, logger: log}
}

// Summarize condenses the last 15 messages into a few sentences.
func (s *Summarizer) Summarize(ctx context.Context, messages []string) string {
	if len(messages) == 0 {
		return EmptySummary
	}
	if len(messages) > summaryWindow {
		messages = messages[len(messages)-summaryWindow:]
	}

	var prompt strings.Builder
	prompt.WriteString("Hãy tóm tắt cuộc hội thoại sau trong 3-4 câu ngắn gọn:\n\n")
	prompt.WriteString(strings.Join(messages, "\n"))
	prompt.WriteString("\n\nGiữ lại những ý chính và các thông tin quan trọng.\n")
	prompt.WriteString("Giữ lại những kiến thức source của người dùng (ví dụ: tên tài khoản, tên tài khoản của người dùng đã tải lên, ...).\n")
	prompt.WriteString("Lưu trữ thông tin cá nhân của người dùng (nếu có) (ví dụ: Tên, tuổi, giới tính, email, số điện thoại, địa chỉ, ...).\n")
	prompt.WriteString("Để tóm tắt cuộc hội thoại, hãy ngắn gọn và dễ hiểu.")

	summary, err := s.llmProvider.Generate(ctx, prompt.String(), llm.WithTemperature(0.1))
	if err != nil {
		s.logger.Error("MEMORY", "Summarization failed", map[string]interface{}{"error": err.Error()})
		return FailedSummary
	}
	return strings.TrimSpace(summary)
}

// Acceptable is the quality gate for a generated summary.
func Acceptable(summary string, minLen int) bool {
	summary = strings.TrimSpace(summary)
	if summary == FailedSummary || summary == EmptySummary {
		return false
	}
	if strings.HasPrefix(summary, "Lỗi") {
		return false
	}
	return utf8.RuneCountInString(summary) > minLen
}
