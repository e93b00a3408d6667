package response

import (
	"context"
	"fmt"

	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/llm"
	"agentic-rag-be/pkg/rag/prompt"
	"agentic-rag-be/pkg/rag/state"
)

const (
	noContext     = "No context available"
	recentHistory = 5
)

// Agent is the grounded path: the primary model sees the retrieved context
// and may call tools before answering.
type Agent struct {
	model  llm.ToolCaller
	logger logger.ILogger
}

func NewAgent(model llm.ToolCaller, log logger.ILogger) *Agent {
	return &Agent{model: model, logger: log}
}

// Respond runs one model turn. A failed call becomes an AI message carrying
// the error so the conversation still ends with an answer.
func (a *Agent) Respond(ctx context.Context, st state.ConversationState, tools []llm.ToolDefinition) state.Message {
	history := AgentHistory(st)

	a.logger.Info("RESPONDER", "Calling primary model", map[string]interface{}{
		"user_id":  st.UserID,
		"messages": len(history),
		"tools":    len(tools),
	})

	reply, err := a.model.ChatWithTools(ctx, history, tools)
	if err != nil {
		a.logger.Error("RESPONDER", "Primary model call failed", map[string]interface{}{"user_id": st.UserID, "error": err.Error()})
		return state.NewAI(fmt.Sprintf("Error calling LLM: %v", err))
	}

	msg := state.FromLLM(*reply)
	msg.Type = state.AIMessage
	return msg
}

// AgentHistory assembles the provider conversation: system prompt, the last
// few remembered turns, then this request's messages with the context
// message placed just before the current user input.
func AgentHistory(st state.ConversationState) []llm.Message {
	reference := noContext
	if st.Context != nil {
		reference = *st.Context
	}

	messages := make([]llm.Message, 0, len(st.Messages)+recentHistory+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: prompt.AgentSystem(st.UserID, st.Memory.Preferences, st.Memory.Summaries),
	})
	messages = append(messages, rememberedTurns(st.Memory.ShortTerm)...)

	current := make([]llm.Message, len(st.Messages))
	for i, m := range st.Messages {
		current[i] = m.ToLLM()
	}

	contextMsg := llm.Message{Role: llm.RoleUser, Content: prompt.ContextMessage(st.UserID, reference)}
	if len(messages)+len(current) <= 2 {
		return append(append(messages, current...), contextMsg)
	}

	at := lastUserIndex(current)
	if at < 0 {
		at = len(current) - 1
	}
	messages = append(messages, current[:at]...)
	messages = append(messages, contextMsg)
	return append(messages, current[at:]...)
}

// rememberedTurns keeps the newest human and AI texts from short-term
// memory. Tool traffic from earlier requests is dropped.
func rememberedTurns(shortTerm []state.Message) []llm.Message {
	var turns []llm.Message
	for _, m := range shortTerm {
		switch m.Type {
		case state.HumanMessage:
			turns = append(turns, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case state.AIMessage:
			if m.Content == "" {
				continue
			}
			turns = append(turns, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		}
	}
	if len(turns) > recentHistory {
		turns = turns[len(turns)-recentHistory:]
	}
	return turns
}

func lastUserIndex(messages []llm.Message) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llm.RoleUser {
			return i
		}
	}
	return -1
}
