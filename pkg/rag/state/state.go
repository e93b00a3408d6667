package state

import (
	"time"

	"agentic-rag-be/pkg/llm"
)

type QueryType string

const (
	QueryGreeting       QueryType = "greeting"
	QueryFarewell       QueryType = "farewell"
	QueryGeneralChat    QueryType = "general_chat"
	QueryKnowledgeQuery QueryType = "knowledge_query"
)

func (q QueryType) Valid() bool {
	switch q {
	case QueryGreeting, QueryFarewell, QueryGeneralChat, QueryKnowledgeQuery:
		return true
	}
	return false
}

type Classification struct {
	NeedsRetrieval bool      `json:"needs_retrieval"`
	QueryType      QueryType `json:"query_type"`
	Confidence     float64   `json:"confidence"`
}

// SafeClassification is used whenever the model's verdict cannot be trusted.
var SafeClassification = Classification{NeedsRetrieval: true, QueryType: QueryKnowledgeQuery, Confidence: 0.5}

// MessageType values match the names persisted in short-term memory.
type MessageType string

const (
	HumanMessage  MessageType = "HumanMessage"
	AIMessage     MessageType = "AIMessage"
	ToolMessage   MessageType = "ToolMessage"
	SystemMessage MessageType = "SystemMessage"
)

type Message struct {
	Type       MessageType    `json:"type"`
	Content    string         `json:"content"`
	Timestamp  time.Time      `json:"timestamp"`
	ToolCalls  []llm.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

func NewHuman(content string) Message {
	return Message{Type: HumanMessage, Content: content, Timestamp: time.Now()}
}

func NewAI(content string) Message {
	return Message{Type: AIMessage, Content: content, Timestamp: time.Now()}
}

func NewTool(callID, name, content string) Message {
	return Message{Type: ToolMessage, Content: content, ToolCallID: callID, Name: name, Timestamp: time.Now()}
}

func (m Message) HasToolCalls() bool {
	return m.Type == AIMessage && len(m.ToolCalls) > 0
}

// ToLLM converts to the provider message shape.
func (m Message) ToLLM() llm.Message {
	out := llm.Message{Content: m.Content, ToolCalls: m.ToolCalls, ToolCallID: m.ToolCallID, Name: m.Name}
	switch m.Type {
	case AIMessage:
		out.Role = llm.RoleAssistant
	case ToolMessage:
		out.Role = llm.RoleTool
	case SystemMessage:
		out.Role = llm.RoleSystem
	default:
		out.Role = llm.RoleUser
	}
	return out
}

func FromLLM(m llm.Message) Message {
	msg := Message{Content: m.Content, ToolCalls: m.ToolCalls, ToolCallID: m.ToolCallID, Name: m.Name, Timestamp: time.Now()}
	switch m.Role {
	case llm.RoleAssistant:
		msg.Type = AIMessage
	case llm.RoleTool:
		msg.Type = ToolMessage
	case llm.RoleSystem:
		msg.Type = SystemMessage
	default:
		msg.Type = HumanMessage
	}
	return msg
}

type ConversationSummary struct {
	Summary        string `json:"summary"`
	ConversationID string `json:"conversation_id"`
	Timestamp      string `json:"timestamp"`
}

// MemorySnapshot is what memory_init loads for one turn.
type MemorySnapshot struct {
	ShortTerm   []Message
	Preferences map[string]interface{}
	Summaries   []ConversationSummary
}

// ConversationState travels by value through every node of one request.
// Nodes return a Patch instead of mutating it.
type ConversationState struct {
	Input          string
	UserID         string
	Messages       []Message
	Context        *string
	UserContext    *string
	AdminContext   *string
	Classification *Classification
	Memory         MemorySnapshot
}

func New(userID, input string) ConversationState {
	return ConversationState{
		Input:    input,
		UserID:   userID,
		Messages: []Message{NewHuman(input)},
	}
}

// Patch holds the fields a node changed. Nil fields are left untouched and
// Messages are appended.
type Patch struct {
	Messages       []Message
	Context        *string
	UserContext    *string
	AdminContext   *string
	Classification *Classification
	Memory         *MemorySnapshot
}

func (s ConversationState) Apply(p Patch) ConversationState {
	if len(p.Messages) > 0 {
		merged := make([]Message, 0, len(s.Messages)+len(p.Messages))
		merged = append(merged, s.Messages...)
		merged = append(merged, p.Messages...)
		s.Messages = merged
	}
	if p.Context != nil {
		s.Context = p.Context
	}
	if p.UserContext != nil {
		s.UserContext = p.UserContext
	}
	if p.AdminContext != nil {
		s.AdminContext = p.AdminContext
	}
	if p.Classification != nil {
		c := *p.Classification
		s.Classification = &c
	}
	if p.Memory != nil {
		s.Memory = *p.Memory
	}
	return s
}

// LastMessage returns the newest message, or false on an empty history.
func (s ConversationState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

func StringPtr(s string) *string {
	return &s
}
