package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"agentic-rag-be/internal/pkg/logger"
	kvmemory "agentic-rag-be/internal/repository/memory"
	"agentic-rag-be/pkg/events"
	"agentic-rag-be/pkg/llm"
	"agentic-rag-be/pkg/llm/llmtest"
	"agentic-rag-be/pkg/rag/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedTTLStore reports a constant remaining TTL so memory age is exact.
type fixedTTLStore struct {
	*kvmemory.KVStore
	remaining time.Duration
}

func (s *fixedTTLStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	if _, found, _ := s.Get(ctx, key); !found {
		return 0, false, nil
	}
	return s.remaining, true, nil
}

type capturePublisher struct {
	events []events.Event
}

func (c *capturePublisher) Publish(ctx context.Context, e events.Event) error {
	c.events = append(c.events, e)
	return nil
}

func newManager(t *testing.T, provider *llmtest.Provider) (*Manager, *kvmemory.KVStore) {
	t.Helper()
	kv := kvmemory.NewKVStore()
	m := NewManager(kv, DefaultConfig(), NewSummarizer(provider, logger.NewNopLogger()), logger.NewNopLogger())
	return m, kv
}

func conversation(n int) []state.Message {
	msgs := make([]state.Message, n)
	for i := range msgs {
		if i%2 == 0 {
			msgs[i] = state.NewHuman(fmt.Sprintf("question number %d about the refund policy", i))
		} else {
			msgs[i] = state.NewAI(fmt.Sprintf("answer number %d explaining the refund policy", i))
		}
	}
	return msgs
}

func TestShortTerm_SaveThenLoadKeepsNewest(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, llmtest.New())

	msgs := conversation(25)
	msgs[24] = state.Message{Type: state.AIMessage, Content: "calling a tool", ToolCalls: []llm.ToolCall{{ID: "c1", Name: "find_document_from_user", Args: map[string]interface{}{"search_query": "refund"}}}}
	require.NoError(t, m.SaveShortTerm(ctx, "u1", msgs))

	loaded := m.LoadShortTerm(ctx, "u1")

	require.Len(t, loaded, 20)
	for i, msg := range loaded {
		assert.Equal(t, msgs[i+5].Type, msg.Type)
		assert.Equal(t, msgs[i+5].Content, msg.Content)
	}
	require.Len(t, loaded[19].ToolCalls, 1)
	assert.Equal(t, "find_document_from_user", loaded[19].ToolCalls[0].Name)
	assert.Equal(t, "refund", loaded[19].ToolCalls[0].Args["search_query"])
}

func TestShortTerm_FewerThanMax(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, llmtest.New())
	msgs := conversation(3)

	require.NoError(t, m.SaveShortTerm(ctx, "u1", msgs))
	loaded := m.LoadShortTerm(ctx, "u1")

	require.Len(t, loaded, 3)
	assert.Equal(t, msgs[0].Content, loaded[0].Content)
	assert.WithinDuration(t, msgs[0].Timestamp, loaded[0].Timestamp, time.Millisecond)
}

func TestShortTerm_MissingOrCorrupt(t *testing.T) {
	ctx := context.Background()
	m, kv := newManager(t, llmtest.New())

	assert.NotNil(t, m.LoadShortTerm(ctx, "nobody"))
	assert.Empty(t, m.LoadShortTerm(ctx, "nobody"))

	require.NoError(t, kv.SetEx(ctx, ShortTermKey("u1"), "not json", time.Hour))
	assert.Empty(t, m.LoadShortTerm(ctx, "u1"))
}

func migrationManager(t *testing.T, provider *llmtest.Provider, remaining time.Duration) (*Manager, *capturePublisher) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ShortTermTTL = 10000 * time.Second
	kv := &fixedTTLStore{KVStore: kvmemory.NewKVStore(), remaining: remaining}
	pub := &capturePublisher{}
	m := NewManager(kv, cfg, NewSummarizer(provider, logger.NewNopLogger()), logger.NewNopLogger()).WithPublisher(pub)
	m.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) }
	return m, pub
}

func TestAutoMigrate_Boundary(t *testing.T) {
	ctx := context.Background()

	t.Run("age 7199s is left alone", func(t *testing.T) {
		provider := llmtest.New()
		m, _ := migrationManager(t, provider, 2801*time.Second)
		require.NoError(t, m.SaveShortTerm(ctx, "u1", conversation(4)))

		outcome, err := m.AutoMigrate(ctx, "u1")

		require.NoError(t, err)
		assert.Equal(t, MigrationRecent, outcome)
		assert.Len(t, m.LoadShortTerm(ctx, "u1"), 4)
		assert.Zero(t, provider.Calls())
	})

	t.Run("age 7201s summarizes and clears", func(t *testing.T) {
		provider := llmtest.New(llmtest.Text("Người dùng hỏi về chính sách hoàn tiền và thời hạn đổi trả."))
		m, pub := migrationManager(t, provider, 2799*time.Second)
		require.NoError(t, m.SaveShortTerm(ctx, "u1", conversation(4)))

		outcome, err := m.AutoMigrate(ctx, "u1")

		require.NoError(t, err)
		assert.Equal(t, MigrationAI, outcome)
		assert.Empty(t, m.LoadShortTerm(ctx, "u1"))

		summaries := m.ConversationSummaries(ctx, "u1", 10)
		require.Len(t, summaries, 1)
		assert.Equal(t, "auto_migrate_20260301_093000", summaries[0].ConversationID)
		assert.Equal(t, "Người dùng hỏi về chính sách hoàn tiền và thời hạn đổi trả.", summaries[0].Summary)

		require.Len(t, pub.events, 1)
		assert.Equal(t, events.TypeMemoryMigrated, pub.events[0].EventType())
		assert.Equal(t, "ai", pub.events[0].Payload()["mode"])
	})
}

func TestAutoMigrate_FallsBackToSimpleSummary(t *testing.T) {
	ctx := context.Background()
	m, _ := migrationManager(t, llmtest.New(llmtest.Fail(errors.New("model down"))), time.Second)
	require.NoError(t, m.SaveShortTerm(ctx, "u1", conversation(7)))

	outcome, err := m.AutoMigrate(ctx, "u1")

	require.NoError(t, err)
	assert.Equal(t, MigrationSimple, outcome)
	assert.Empty(t, m.LoadShortTerm(ctx, "u1"))

	summaries := m.ConversationSummaries(ctx, "u1", 10)
	require.Len(t, summaries, 1)
	assert.Equal(t, "auto_migrate_simple_20260301_093000", summaries[0].ConversationID)
	assert.True(t, strings.HasPrefix(summaries[0].Summary, "Auto-migrated conversation: question number 2"))
	assert.Equal(t, 5, strings.Count(summaries[0].Summary, "refund policy"))
}

func TestAutoMigrate_ShortReplyRejected(t *testing.T) {
	ctx := context.Background()
	m, _ := migrationManager(t, llmtest.New(llmtest.Text("Lỗi: không thể tóm tắt cuộc hội thoại")), time.Second)
	require.NoError(t, m.SaveShortTerm(ctx, "u1", conversation(2)))

	outcome, err := m.AutoMigrate(ctx, "u1")

	require.NoError(t, err)
	assert.Equal(t, MigrationSimple, outcome)
}

func TestAutoMigrate_NothingMeaningful(t *testing.T) {
	ctx := context.Background()
	provider := llmtest.New()
	m, _ := migrationManager(t, provider, time.Second)
	require.NoError(t, m.SaveShortTerm(ctx, "u1", []state.Message{state.NewHuman("hi"), state.NewAI("hello there!")}))

	outcome, err := m.AutoMigrate(ctx, "u1")

	require.NoError(t, err)
	assert.Equal(t, MigrationSkipped, outcome)
	assert.Len(t, m.LoadShortTerm(ctx, "u1"), 2)
	assert.Zero(t, provider.Calls())
}

func TestAutoMigrate_NoMemory(t *testing.T) {
	m, _ := migrationManager(t, llmtest.New(), time.Second)
	outcome, err := m.AutoMigrate(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, MigrationNone, outcome)
}

func TestLongTerm_AccessCountAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	m, kv := newManager(t, llmtest.New())
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return first }

	require.NoError(t, m.SaveLongTerm(ctx, "u1", "notes", map[string]string{"a": "1"}))

	var out map[string]string
	for i := 0; i < 2; i++ {
		found, err := m.LoadLongTerm(ctx, "u1", "notes", &out)
		require.NoError(t, err)
		require.True(t, found)
	}
	assert.Equal(t, "1", out["a"])

	m.now = func() time.Time { return first.Add(time.Hour) }
	require.NoError(t, m.SaveLongTerm(ctx, "u1", "notes", map[string]string{"a": "2"}))

	raw, found, err := kv.Get(ctx, LongTermKey("u1", "notes"))
	require.NoError(t, err)
	require.True(t, found)
	var rec longTermRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	assert.Equal(t, 2, rec.AccessCount)
	assert.Equal(t, first.Format(time.RFC3339), rec.CreatedAt)
	assert.Equal(t, first.Add(time.Hour).Format(time.RFC3339), rec.UpdatedAt)
	assert.JSONEq(t, `{"a":"2"}`, string(rec.Data))

	found, err = m.LoadLongTerm(ctx, "u1", "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestConversationSummaries_Capped(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, llmtest.New())
	m.cfg.MaxSummaries = 3

	for i := 0; i < 5; i++ {
		require.NoError(t, m.SaveConversationSummary(ctx, "u1", fmt.Sprintf("summary %d", i), ""))
	}

	all := m.ConversationSummaries(ctx, "u1", 10)
	require.Len(t, all, 3)
	assert.Equal(t, "summary 2", all[0].Summary)
	assert.Equal(t, "summary 4", all[2].Summary)
	assert.True(t, strings.HasPrefix(all[0].ConversationID, "conv_"))

	last := m.ConversationSummaries(ctx, "u1", 1)
	require.Len(t, last, 1)
	assert.Equal(t, "summary 4", last[0].Summary)
}

func TestPreferencesAndUserContext(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, llmtest.New())

	assert.Equal(t, map[string]interface{}{}, m.Preferences(ctx, "u1"))

	require.NoError(t, m.SavePreferences(ctx, "u1", map[string]interface{}{"language": "vi", "tone": "formal"}))
	assert.Equal(t, "vi", m.Preferences(ctx, "u1")["language"])

	_, ok := m.UserContext(ctx, "u1", "")
	assert.False(t, ok)
	require.NoError(t, m.SaveUserContext(ctx, "u1", "works in finance", ""))
	got, ok := m.UserContext(ctx, "u1", "general")
	assert.True(t, ok)
	assert.Equal(t, "works in finance", got)
}

func TestLongTermTypesAndClear(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, llmtest.New())

	require.NoError(t, m.SaveShortTerm(ctx, "u1", conversation(2)))
	require.NoError(t, m.SavePreferences(ctx, "u1", map[string]interface{}{"x": 1}))
	require.NoError(t, m.SaveLongTerm(ctx, "u1", "project_alpha", "notes"))
	require.NoError(t, m.SavePreferences(ctx, "u2", map[string]interface{}{"x": 2}))

	types, err := m.LongTermTypes(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{TypeUserPreferences, "project_alpha"}, types)

	require.NoError(t, m.Clear(ctx, "u1", "project_alpha"))
	types, _ = m.LongTermTypes(ctx, "u1")
	assert.Equal(t, []string{TypeUserPreferences}, types)

	require.NoError(t, m.Clear(ctx, "u1", ScopeShortTerm))
	assert.Empty(t, m.LoadShortTerm(ctx, "u1"))
	assert.NotEmpty(t, m.Preferences(ctx, "u1"))

	require.NoError(t, m.Clear(ctx, "u1", ScopeAll))
	types, _ = m.LongTermTypes(ctx, "u1")
	assert.Empty(t, types)
	assert.NotEmpty(t, m.Preferences(ctx, "u2"))
}

func TestLongTermTypes_IsolatesUsersSharingAPrefix(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, llmtest.New())

	require.NoError(t, m.SavePreferences(ctx, "a", map[string]interface{}{"x": "a"}))
	require.NoError(t, m.SavePreferences(ctx, "a:b", map[string]interface{}{"x": "a:b"}))
	require.NoError(t, m.SavePreferences(ctx, "ab", map[string]interface{}{"x": "ab"}))

	types, err := m.LongTermTypes(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{TypeUserPreferences}, types)

	types, err = m.LongTermTypes(ctx, "a*")
	require.NoError(t, err)
	assert.Empty(t, types)

	types, err = m.LongTermTypes(ctx, "a?")
	require.NoError(t, err)
	assert.Empty(t, types)

	require.NoError(t, m.Clear(ctx, "a", ScopeAll))
	assert.Empty(t, m.Preferences(ctx, "a"))
	assert.Equal(t, "a:b", m.Preferences(ctx, "a:b")["x"])
	assert.Equal(t, "ab", m.Preferences(ctx, "ab")["x"])

	require.NoError(t, m.Clear(ctx, "a*", ScopeAll))
	assert.Equal(t, "ab", m.Preferences(ctx, "ab")["x"])
}

func TestLongTerm_RejectsInvalidMemoryType(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, llmtest.New())
	require.NoError(t, m.SavePreferences(ctx, "a:b", map[string]interface{}{"x": 1}))

	for _, memoryType := range []string{"", "b:user_preferences", "*", "notes/work"} {
		assert.ErrorIs(t, m.SaveLongTerm(ctx, "a", memoryType, "v"), ErrInvalidMemoryType, memoryType)
		assert.ErrorIs(t, m.DeleteLongTerm(ctx, "a", memoryType), ErrInvalidMemoryType, memoryType)
	}
	assert.ErrorIs(t, m.Clear(ctx, "a", "b:user_preferences"), ErrInvalidMemoryType)
	assert.NotEmpty(t, m.Preferences(ctx, "a:b"))
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `long_term:a\*\?\[x\]\\:`, escapeGlob(`long_term:a*?[x]\:`))
	assert.Equal(t, "plain:user", escapeGlob("plain:user"))
}

func TestSummarizeTurn(t *testing.T) {
	ctx := context.Background()
	provider := llmtest.New()
	provider.Default = llmtest.Text("The user asked several questions about refunds.")
	m, _ := newManager(t, provider)
	pub := &capturePublisher{}
	m.WithPublisher(pub)

	assert.False(t, m.SummarizeTurn(ctx, "u1", conversation(15)))
	assert.Zero(t, provider.Calls())

	assert.True(t, m.SummarizeTurn(ctx, "u1", conversation(16)))
	assert.Len(t, m.ConversationSummaries(ctx, "u1", 10), 1)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeConversationSummarized, pub.events[0].EventType())

	// only the last 8 meaningful messages reach the summarizer
	prompt := provider.Prompts()[0]
	assert.NotContains(t, prompt, "number 7 ")
	assert.Contains(t, prompt, "number 8 ")
	assert.Contains(t, prompt, "number 15 ")
}

func TestSummarizeTurn_RejectsFailedSummary(t *testing.T) {
	ctx := context.Background()
	m, _ := newManager(t, llmtest.New(llmtest.Fail(errors.New("down"))))

	assert.False(t, m.SummarizeTurn(ctx, "u1", conversation(20)))
	assert.Empty(t, m.ConversationSummaries(ctx, "u1", 10))
}

func TestHealth(t *testing.T) {
	m, _ := newManager(t, llmtest.New())

	h := m.Health(context.Background())

	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "in-process", h.RedisVersion)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h = m.Health(ctx)
	assert.Equal(t, "unhealthy", h.Status)
	assert.NotEmpty(t, h.Error)
}
