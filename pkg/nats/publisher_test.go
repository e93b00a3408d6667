package nats

import (
	"encoding/json"
	"testing"
	"time"

	"agentic-rag-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.chat.completed", Subject(events.TypeChatCompleted))
	assert.Equal(t, "events.memory.migrated", Subject(events.TypeMemoryMigrated))
}

func TestMessageID(t *testing.T) {
	chat := events.ChatCompleted("ab12cd34", "u1", "knowledge_query", true, true, time.Second)
	assert.Equal(t, "chat.completed:ab12cd34", messageID(chat))

	migrated := events.MemoryMigrated("u1", "ai", "conv_1")
	assert.Equal(t, "memory.migrated:conv_1", messageID(migrated))

	bare := events.BaseEvent{Type: "chat.completed", Data: map[string]interface{}{}, OccurredAt: time.Unix(0, 42)}
	assert.Equal(t, "chat.completed:42", messageID(bare))
}

func TestNewMsg(t *testing.T) {
	ev := events.ConversationSummarized("u7", "conv_9")

	msg, err := newMsg(ev)
	require.NoError(t, err)
	assert.Equal(t, "events.memory.summarized", msg.Subject)
	assert.Equal(t, events.TypeConversationSummarized, msg.Header.Get(HeaderEventType))
	assert.Equal(t, "u7", msg.Header.Get(HeaderUserID))

	var decoded events.BaseEvent
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "conv_9", decoded.Data["conversation_id"])
}
