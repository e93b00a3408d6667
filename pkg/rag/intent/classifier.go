package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/llm"
	"agentic-rag-be/pkg/rag/state"
)

var (
	greetingPatterns = compile(
		`^\s*(xin\s+chào|chào\s+bạn|chào|xin\s+chao|chao)\s*[!.]*\s*$`,
		`^\s*(hi|hello|hey|good\s+morning|good\s+afternoon|good\s+evening)\s*[!.]*\s*$`,
		`^\s*(chào\s+buổi\s+sáng|chào\s+buổi\s+chiều|chào\s+buổi\s+tối)\s*[!.]*\s*$`,
		`^\s*(hế\s*lô|hể\s*lô|hêlô|helo)\s*[!.]*\s*$`,
		`^\s*(alo|a\s*lo|alô)\s*[!.]*\s*$`,
	)
	farewellPatterns = compile(
		`^\s*(tạm\s+biệt|tam\s+biet|goodbye|bye|see\s+you|hẹn\s+gặp\s+lại)\s*[!.]*\s*$`,
		`^\s*(chào\s+tạm\s+biệt|gặp\s+lại\s+sau|bye\s+bye)\s*[!.]*\s*$`,
		`^\s*(cảm\s+ơn\s+và\s+tạm\s+biệt|thanks\s+and\s+bye)\s*[!.]*\s*$`,
	)
	generalChatPatterns = compile(
		`^\s*(bạn\s+khỏe\s+không|how\s+are\s+you|what's\s+up|whats\s+up)\s*[?!.]*\s*$`,
		`^\s*(bạn\s+tên\s+gì|tên\s+của\s+bạn|what's\s+your\s+name|whats\s+your\s+name)\s*[?!.]*\s*$`,
		`^\s*(cảm\s+ơn|thank\s+you|thanks|thank)\s*[!.]*\s*$`,
		`^\s*(ok|okay|oke|được\s+rồi|tốt)\s*[!.]*\s*$`,
	)
	shortGreetings = []string{"hi", "hey", "yo", "chào", "xin chào"}
)

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Classifier decides whether a query needs document retrieval.
// Small talk is caught by patterns; everything else goes to the model.
type Classifier struct {
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewClassifier(llmProvider llm.LLMProvider, log logger.ILogger) *Classifier {
	return &Classifier{
		llmProvider: llmProvider,
		logger:      log,
	}
}

// MatchPattern runs only the pattern tier. ok is false when nothing matched.
// Input is NFC-normalized first so decomposed Vietnamese diacritics match.
func MatchPattern(query string) (state.Classification, bool) {
	normalized := strings.ToLower(strings.TrimSpace(norm.NFC.String(query)))

	if matchAny(greetingPatterns, normalized) {
		return state.Classification{QueryType: state.QueryGreeting, Confidence: 0.95}, true
	}
	if matchAny(farewellPatterns, normalized) {
		return state.Classification{QueryType: state.QueryFarewell, Confidence: 0.95}, true
	}
	if matchAny(generalChatPatterns, normalized) {
		return state.Classification{QueryType: state.QueryGeneralChat, Confidence: 0.90}, true
	}
	if utf8.RuneCountInString(normalized) <= 3 {
		for _, g := range shortGreetings {
			if normalized == g {
				return state.Classification{QueryType: state.QueryGreeting, Confidence: 0.90}, true
			}
		}
	}
	return state.Classification{}, false
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// Classify never fails. A broken or unparseable model verdict yields
// state.SafeClassification so a real question is never dropped.
func (c *Classifier) Classify(ctx context.Context, query string) state.Classification {
	if result, ok := MatchPattern(query); ok {
		c.logger.Info("CLASSIFIER", "Query matched pattern", map[string]interface{}{
			"query": query, "query_type": result.QueryType, "confidence": result.Confidence,
		})
		return result
	}

	if c.llmProvider == nil {
		return state.SafeClassification
	}

	response, err := c.llmProvider.Generate(ctx, buildPrompt(query), llm.WithTemperature(0.1))
	if err != nil {
		c.logger.Error("CLASSIFIER", "Classification call failed", map[string]interface{}{"error": err.Error()})
		return state.SafeClassification
	}

	result, err := parseClassification(response)
	if err != nil {
		c.logger.Warn("CLASSIFIER", "Invalid classification, defaulting to knowledge query", map[string]interface{}{
			"error": err.Error(), "raw": response,
		})
		return state.SafeClassification
	}

	c.logger.Info("CLASSIFIER", "Query classified by model", map[string]interface{}{
		"query_type": result.QueryType, "needs_retrieval": result.NeedsRetrieval, "confidence": result.Confidence,
	})
	return result
}

func buildPrompt(query string) string {
	var prompt strings.Builder

	prompt.WriteString("Phân tích câu hỏi sau và xác định xem có cần truy vấn kiến thức để trả lời không:\n\n")
	prompt.WriteString(fmt.Sprintf("Câu hỏi: %q\n\n", query))
	prompt.WriteString("Hãy phân loại thành một trong các dạng sau:\n")
	prompt.WriteString("1. **greeting** - Câu chào hỏi đơn giản (xin chào, hi, hello, chào bạn, v.v.)\n")
	prompt.WriteString("2. **farewell** - Câu tạm biệt (tạm biệt, bye, goodbye, v.v.)\n")
	prompt.WriteString("3. **general_chat** - Trò chuyện chung (hỏi thăm sức khỏe, cảm ơn, v.v.)\n")
	prompt.WriteString("4. **knowledge_query** - Câu hỏi cần kiến thức cụ thể\n\n")
	prompt.WriteString("QUY TẮC QUAN TRỌNG:\n")
	prompt.WriteString("- Nếu là câu chào hỏi đơn giản → needs_retrieval = false\n")
	prompt.WriteString("- Nếu là câu tạm biệt → needs_retrieval = false\n")
	prompt.WriteString("- Nếu là trò chuyện chung → needs_retrieval = false\n")
	prompt.WriteString("- Chỉ khi nào thực sự cần thông tin cụ thể → needs_retrieval = true\n\n")
	prompt.WriteString("Trả về kết quả dưới dạng JSON chính xác:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"needs_retrieval\": boolean,\n")
	prompt.WriteString("  \"query_type\": string,\n")
	prompt.WriteString("  \"confidence\": float\n")
	prompt.WriteString("}")

	return prompt.String()
}

type rawClassification struct {
	NeedsRetrieval *bool    `json:"needs_retrieval"`
	QueryType      *string  `json:"query_type"`
	Confidence     *float64 `json:"confidence"`
}

func parseClassification(response string) (state.Classification, error) {
	jsonContent := llm.ExtractJSONObject(response)
	if jsonContent == "" {
		return state.Classification{}, fmt.Errorf("no JSON found in response")
	}

	var raw rawClassification
	if err := json.Unmarshal([]byte(jsonContent), &raw); err != nil {
		return state.Classification{}, fmt.Errorf("JSON unmarshal failed: %w", err)
	}
	if raw.NeedsRetrieval == nil {
		return state.Classification{}, fmt.Errorf("needs_retrieval must be boolean")
	}
	if raw.QueryType == nil || !state.QueryType(*raw.QueryType).Valid() {
		return state.Classification{}, fmt.Errorf("invalid query_type")
	}
	if raw.Confidence == nil {
		return state.Classification{}, fmt.Errorf("confidence must be numeric")
	}
	if *raw.Confidence < 0 || *raw.Confidence > 1 {
		return state.Classification{}, fmt.Errorf("confidence %v out of range", *raw.Confidence)
	}

	return state.Classification{
		NeedsRetrieval: *raw.NeedsRetrieval,
		QueryType:      state.QueryType(*raw.QueryType),
		Confidence:     *raw.Confidence,
	}, nil
}
