package dto

import "agentic-rag-be/pkg/rag/state"

type MessagePreview struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type ShortTermMemory struct {
	MessageCount int              `json:"message_count"`
	Messages     []MessagePreview `json:"messages"`
}

type UserMemoryResponse struct {
	UserID                string                      `json:"user_id"`
	ShortTermMemory       ShortTermMemory             `json:"short_term_memory"`
	ConversationSummaries []state.ConversationSummary `json:"conversation_summaries"`
	UserPreferences       map[string]interface{}      `json:"user_preferences"`
	LongTermMemoryTypes   []string                    `json:"long_term_memory_types"`
	Success               bool                        `json:"success"`
}

type MemoryActionResponse struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}
