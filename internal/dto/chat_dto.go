package dto

type ChatRequest struct {
	Message string `json:"message" validate:"required"`
	UserID  string `json:"user_id,omitempty"`
}

type MemoryStats struct {
	ShortTermMessages     int  `json:"short_term_messages"`
	UserPreferencesLoaded bool `json:"user_preferences_loaded"`
	ConversationSummaries int  `json:"conversation_summaries"`
}

type Timing struct {
	TotalSeconds           float64  `json:"total_seconds"`
	GraphProcessingSeconds *float64 `json:"graph_processing_seconds,omitempty"`
}

type ChatResponse struct {
	RequestID   string       `json:"request_id"`
	UserID      string       `json:"user_id,omitempty"`
	Response    string       `json:"response,omitempty"`
	Error       string       `json:"error,omitempty"`
	Success     bool         `json:"success"`
	MemoryStats *MemoryStats `json:"memory_stats,omitempty"`
	Timing      Timing       `json:"timing"`
}
