package response

import (
	"context"
	"math/rand/v2"
	"strings"

	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/llm"
	"agentic-rag-be/pkg/rag/prompt"
	"agentic-rag-be/pkg/rag/state"
)

const Apology = "Xin lỗi, tôi không hiểu câu hỏi của bạn. / Sorry, I don't understand your question."

var GreetingTemplates = []string{
	"Xin chào! Tôi là WoxionChat AI, rất vui được gặp bạn! 👋\nHi! I'm WoxionChat AI, nice to meet you! 👋",
	"Chào bạn! Tôi sẵn sàng hỗ trợ bạn hôm nay! 😊\nHello! I'm ready to help you today! 😊",
	"Xin chào! Tôi là trợ lý AI WoxionChat. Bạn cần tôi hỗ trợ gì không? 🤖\nHi! I'm WoxionChat AI assistant. How can I help you? 🤖",
	"Chào bạn! Rất vui được trò chuyện với bạn! 🌟\nHello! Great to chat with you! 🌟",
}

var FarewellTemplates = []string{
	"Tạm biệt! Hẹn gặp lại bạn lần sau! 👋\nGoodbye! See you next time! 👋",
	"Chào tạm biệt! Chúc bạn một ngày tốt lành! 😊\nFarewell! Have a great day! 😊",
	"Hẹn gặp lại! Luôn sẵn sàng hỗ trợ bạn! 🤗\nSee you later! Always ready to help! 🤗",
	"Tạm biệt! Cảm ơn bạn đã trò chuyện! 💫\nGoodbye! Thanks for chatting! 💫",
}

type keywordReply struct {
	keywords []string
	reply    string
}

var generalChatReplies = []keywordReply{
	{[]string{"cảm ơn", "thank"}, "Không có gì! Tôi rất vui được giúp đỡ bạn! 😊\nYou're welcome! I'm happy to help! 😊"},
	{[]string{"khỏe", "how are you"}, "Tôi rất khỏe và sẵn sàng hỗ trợ bạn! Còn bạn thì sao? 😊\nI'm doing great and ready to help! How about you? 😊"},
	{[]string{"tên", "name"}, "Tôi là WoxionChat AI, trợ lý thông minh của bạn! 🤖\nI'm WoxionChat AI, your intelligent assistant! 🤖"},
	{[]string{"ok", "okay", "được rồi"}, "Tốt! Tôi sẵn sàng hỗ trợ bạn tiếp! 👍\nGreat! I'm ready to help you further! 👍"},
}

func fallbackReply(queryType state.QueryType) string {
	switch queryType {
	case state.QueryGreeting:
		return "Xin chào! Tôi là WoxionChat AI, rất vui được gặp bạn! 👋\nHi! I'm WoxionChat AI, nice to meet you! 👋"
	case state.QueryFarewell:
		return "Tạm biệt! Hẹn gặp lại bạn nhé! 👋\nGoodbye! See you again! 👋"
	default:
		return "Rất vui được trò chuyện với bạn! Tôi có thể giúp gì cho bạn không? 😊\nIt's nice chatting with you! How can I help you? 😊"
	}
}

// DirectResponder answers small talk without retrieval. The local model is
// tried first, then canned templates and the utility model, then a fixed
// apology.
type DirectResponder struct {
	local   llm.LLMProvider
	utility llm.LLMProvider
	logger  logger.ILogger
	pick    func(n int) int
}

// NewDirectResponder accepts a nil local model, in which case Respond goes
// straight to Reply.
func NewDirectResponder(local, utility llm.LLMProvider, log logger.ILogger) *DirectResponder {
	return &DirectResponder{
		local:   local,
		utility: utility,
		logger:  log,
		pick:    rand.IntN,
	}
}

func (r *DirectResponder) Respond(ctx context.Context, query string, queryType state.QueryType) string {
	if r.local != nil {
		answer, err := r.local.Chat(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: prompt.Persona},
			{Role: llm.RoleUser, Content: query},
		})
		if err == nil && strings.TrimSpace(answer) != "" {
			return strings.TrimSpace(answer)
		}
		if err != nil {
			r.logger.Warn("RESPONDER", "Local model failed, using direct reply", map[string]interface{}{"error": err.Error()})
		}
	}

	if answer := r.Reply(ctx, query, queryType); answer != "" {
		return answer
	}
	r.logger.Error("RESPONDER", "Direct reply was empty", map[string]interface{}{"query_type": queryType})
	return Apology
}

// Reply is the template and utility-model tier of the direct path. It
// returns a per-type fallback phrase when the model fails and an empty
// string only when the model answers with nothing.
func (r *DirectResponder) Reply(ctx context.Context, query string, queryType state.QueryType) string {
	switch queryType {
	case state.QueryGreeting:
		return GreetingTemplates[r.pick(len(GreetingTemplates))]
	case state.QueryFarewell:
		return FarewellTemplates[r.pick(len(FarewellTemplates))]
	case state.QueryGeneralChat:
		normalized := strings.ToLower(strings.TrimSpace(query))
		for _, kr := range generalChatReplies {
			for _, kw := range kr.keywords {
				if strings.Contains(normalized, kw) {
					return kr.reply
				}
			}
		}
	}

	if r.utility == nil {
		return fallbackReply(queryType)
	}

	answer, err := r.utility.Generate(ctx, prompt.Direct(query, queryType), llm.WithTemperature(0.1))
	if err != nil {
		r.logger.Error("RESPONDER", "Direct reply generation failed", map[string]interface{}{"query_type": queryType, "error": err.Error()})
		return fallbackReply(queryType)
	}
	return llm.StripCodeFences(answer)
}
