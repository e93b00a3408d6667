package prompt

import (
	"encoding/json"
	"strings"

	"agentic-rag-be/pkg/rag/state"
)

// AgentSystem builds the grounded agent's system prompt: identity notice,
// persona, then whatever long-term memory the user has.
func AgentSystem(userID string, prefs map[string]interface{}, summaries []state.ConversationSummary) string {
	var prompt strings.Builder

	prompt.WriteString("User ID: ")
	prompt.WriteString(userID)
	prompt.WriteString(" - User is already identified. Do not ask for identification.\n\n")
	prompt.WriteString(Persona)

	if len(prefs) > 0 {
		encoded, err := json.Marshal(prefs)
		if err == nil {
			prompt.WriteString("\n\nUser preferences: ")
			prompt.Write(encoded)
		}
	}

	if len(summaries) > 0 {
		if len(summaries) > 2 {
			summaries = summaries[len(summaries)-2:]
		}
		texts := make([]string, len(summaries))
		for i, s := range summaries {
			texts[i] = s.Summary
		}
		prompt.WriteString("\n\nPrevious conversations: ")
		prompt.WriteString(strings.Join(texts, "; "))
	}

	return prompt.String()
}

// ContextMessage is the human turn carrying retrieved context into the
// agent's conversation.
func ContextMessage(userID, context string) string {
	var msg strings.Builder
	msg.WriteString("IMPORTANT: User is already identified with ID: ")
	msg.WriteString(userID)
	msg.WriteString("\nDO NOT ask for name, username, or any identification information.\n\n")
	msg.WriteString("Reference context:\n```\n")
	msg.WriteString(context)
	msg.WriteString("\n```")
	return msg.String()
}

// Direct is the utility-model prompt for answering small talk without
// retrieval.
func Direct(query string, queryType state.QueryType) string {
	var prompt strings.Builder
	prompt.WriteString("Bạn là WoxionChat AI, một trợ lý thông minh, thân thiện và chuyên nghiệp.\n")
	prompt.WriteString("Hãy trả lời câu hỏi của người dùng một cách tự nhiên và phù hợp.\n\n")
	prompt.WriteString("Loại câu hỏi: ")
	prompt.WriteString(string(queryType))
	prompt.WriteString("\nCâu hỏi/Tin nhắn: \"")
	prompt.WriteString(query)
	prompt.WriteString("\"\n\n")
	prompt.WriteString("QUY TẮC TRẢI NGHIỆM:\n")
	prompt.WriteString("1. Trả lời ngắn gọn, tự nhiên như một người bạn thân thiện\n")
	prompt.WriteString("2. Phù hợp với loại câu hỏi (chào hỏi, tạm biệt, trò chuyện)\n")
	prompt.WriteString("3. Luôn giữ thái độ tích cực, chuyên nghiệp\n")
	prompt.WriteString("4. Sử dụng emoji phù hợp để tạo cảm giác thân thiện\n")
	prompt.WriteString("5. Trả lời bằng cả tiếng Việt và tiếng Anh (Vietnamese first, English second)\n")
	prompt.WriteString("6. KHÔNG đưa ra câu trả lời dạng JSON hoặc code\n")
	prompt.WriteString("7. KHÔNG hỏi thông tin cá nhân hoặc yêu cầu đăng nhập\n")
	prompt.WriteString("8. Tập trung vào việc tạo ra một cuộc trò chuyện tự nhiên\n\n")
	prompt.WriteString("PHONG CÁCH:\n")
	prompt.WriteString("- Nếu greeting: Chào đón nhiệt tình, giới thiệu bản thân\n")
	prompt.WriteString("- Nếu farewell: Tạm biệt ấm áp, mời quay lại\n")
	prompt.WriteString("- Nếu general_chat: Trả lời thân thiện, tự nhiên\n\n")
	prompt.WriteString("Hãy trả lời một cách tự nhiên nhất có thể!")
	return prompt.String()
}
