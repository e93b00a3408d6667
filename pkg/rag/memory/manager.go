package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/internal/repository/contract"
	"agentic-rag-be/pkg/events"
	"agentic-rag-be/pkg/llm"
	"agentic-rag-be/pkg/rag/state"
)

const (
	TypeConversationSummaries = "conversation_summaries"
	TypeUserPreferences       = "user_preferences"

	ScopeAll       = "all"
	ScopeShortTerm = "short_term"

	// SummaryTrigger is the message count above which a turn is summarized.
	SummaryTrigger = 15
)

type MigrationOutcome string

const (
	MigrationNone    MigrationOutcome = "none"
	MigrationRecent  MigrationOutcome = "recent"
	MigrationSkipped MigrationOutcome = "skipped"
	MigrationAI      MigrationOutcome = "ai"
	MigrationSimple  MigrationOutcome = "simple"
)

type Config struct {
	ShortTermTTL         time.Duration
	LongTermTTL          time.Duration
	MaxShortTermMessages int
	MigrationAge         time.Duration
	MaxSummaries         int
}

func DefaultConfig() Config {
	return Config{
		ShortTermTTL:         time.Hour,
		LongTermTTL:          30 * 24 * time.Hour,
		MaxShortTermMessages: 20,
		MigrationAge:         2 * time.Hour,
		MaxSummaries:         50,
	}
}

// ConversationSummarizer turns message texts into a short summary.
type ConversationSummarizer interface {
	Summarize(ctx context.Context, messages []string) string
}

// Manager keeps per-user short-term and long-term memory in a KV store.
// Long-term read-modify-write cycles are serialized per user within this
// process; short-term saves are last-write-wins.
type Manager struct {
	kv         contract.KVStore
	cfg        Config
	summarizer ConversationSummarizer
	publisher  events.Publisher
	logger     logger.ILogger
	now        func() time.Time
	locks      [64]sync.Mutex
}

func NewManager(kv contract.KVStore, cfg Config, summarizer ConversationSummarizer, log logger.ILogger) *Manager {
	return &Manager{
		kv:         kv,
		cfg:        cfg,
		summarizer: summarizer,
		publisher:  events.Nop,
		logger:     log,
		now:        time.Now,
	}
}

func (m *Manager) WithPublisher(p events.Publisher) *Manager {
	m.publisher = p
	return m
}

func (m *Manager) Config() Config {
	return m.cfg
}

func (m *Manager) lock(userID string) func() {
	h := fnv.New32a()
	h.Write([]byte(userID))
	mu := &m.locks[h.Sum32()%uint32(len(m.locks))]
	mu.Lock()
	return mu.Unlock
}

// ErrInvalidMemoryType is returned for long-term types that are empty or
// contain ':', '/' or glob characters. A long-term key therefore splits at
// its last colon into exactly one user and one type.
var ErrInvalidMemoryType = errors.New("invalid memory type")

func validMemoryType(memoryType string) bool {
	return memoryType != "" && !strings.ContainsAny(memoryType, ":/*?[]\\")
}

// escapeGlob quotes glob metacharacters for KEYS/SCAN style patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func ShortTermKey(userID string) string {
	return "short_term:" + userID
}

func LongTermKey(userID, memoryType string) string {
	return fmt.Sprintf("long_term:%s:%s", userID, memoryType)
}

type storedToolCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
	ID   string                 `json:"id"`
}

type storedMessage struct {
	Type       state.MessageType `json:"type"`
	Content    string            `json:"content"`
	Timestamp  float64           `json:"timestamp"`
	ToolCalls  []storedToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string            `json:"tool_call_id,omitempty"`
	Name       string            `json:"name,omitempty"`
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9))
}

// SaveShortTerm overwrites the user's short-term record with the newest
// MaxShortTermMessages messages and resets its TTL.
func (m *Manager) SaveShortTerm(ctx context.Context, userID string, messages []state.Message) error {
	messages = tail(messages, m.cfg.MaxShortTermMessages)

	stored := make([]storedMessage, len(messages))
	for i, msg := range messages {
		ts := msg.Timestamp
		if ts.IsZero() {
			ts = m.now()
		}
		sm := storedMessage{
			Type:       msg.Type,
			Content:    msg.Content,
			Timestamp:  unixSeconds(ts),
			ToolCallID: msg.ToolCallID,
			Name:       msg.Name,
		}
		for _, tc := range msg.ToolCalls {
			sm.ToolCalls = append(sm.ToolCalls, storedToolCall{Name: tc.Name, Args: tc.Args, ID: tc.ID})
		}
		stored[i] = sm
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode short-term memory: %w", err)
	}
	if err := m.kv.SetEx(ctx, ShortTermKey(userID), string(data), m.cfg.ShortTermTTL); err != nil {
		m.logger.Error("MEMORY", "Failed to save short-term memory", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return fmt.Errorf("failed to save short-term memory: %w", err)
	}

	m.logger.Info("MEMORY", "Saved short-term memory", map[string]interface{}{"user_id": userID, "count": len(stored)})
	return nil
}

// LoadShortTerm returns the stored messages in order. A missing, expired or
// unreadable record yields an empty list.
func (m *Manager) LoadShortTerm(ctx context.Context, userID string) []state.Message {
	data, found, err := m.kv.Get(ctx, ShortTermKey(userID))
	if err != nil {
		m.logger.Error("MEMORY", "Failed to load short-term memory", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return []state.Message{}
	}
	if !found {
		return []state.Message{}
	}

	var stored []storedMessage
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		m.logger.Error("MEMORY", "Corrupt short-term memory record", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return []state.Message{}
	}

	messages := make([]state.Message, 0, len(stored))
	for _, sm := range stored {
		msg := state.Message{
			Type:       sm.Type,
			Content:    sm.Content,
			Timestamp:  fromUnixSeconds(sm.Timestamp),
			ToolCallID: sm.ToolCallID,
			Name:       sm.Name,
		}
		for _, tc := range sm.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{ID: tc.ID, Name: tc.Name, Args: tc.Args})
		}
		messages = append(messages, msg)
	}
	return messages
}

func (m *Manager) ClearShortTerm(ctx context.Context, userID string) error {
	if err := m.kv.Del(ctx, ShortTermKey(userID)); err != nil {
		return fmt.Errorf("failed to clear short-term memory: %w", err)
	}
	m.logger.Info("MEMORY", "Cleared short-term memory", map[string]interface{}{"user_id": userID})
	return nil
}

// ShortTermRemaining reports the record's remaining TTL in whole seconds,
// or zero when there is none.
func (m *Manager) ShortTermRemaining(ctx context.Context, userID string) time.Duration {
	remaining, ok, err := m.kv.TTL(ctx, ShortTermKey(userID))
	if err != nil || !ok || remaining <= 0 {
		return 0
	}
	return remaining.Truncate(time.Second)
}

// AutoMigrate moves short-term memory older than MigrationAge into a
// long-term summary and clears it. Age is the configured TTL minus the
// remaining TTL. If the model summary fails the quality gate a plain
// concatenation is stored instead.
func (m *Manager) AutoMigrate(ctx context.Context, userID string) (MigrationOutcome, error) {
	_, found, err := m.kv.Get(ctx, ShortTermKey(userID))
	if err != nil {
		return MigrationNone, fmt.Errorf("failed to read short-term memory: %w", err)
	}
	if !found {
		return MigrationNone, nil
	}

	age := m.cfg.ShortTermTTL - m.ShortTermRemaining(ctx, userID)
	if age <= m.cfg.MigrationAge {
		m.logger.Debug("MEMORY", "Short-term memory is recent", map[string]interface{}{"user_id": userID, "age_seconds": age.Seconds()})
		return MigrationRecent, nil
	}

	m.logger.Info("MEMORY", "Auto-migrating old memory", map[string]interface{}{"user_id": userID, "age_seconds": age.Seconds()})
	contents := meaningful(m.LoadShortTerm(ctx, userID), 150)
	if len(contents) < 2 {
		m.logger.Info("MEMORY", "No meaningful content to migrate", map[string]interface{}{"user_id": userID})
		return MigrationSkipped, nil
	}

	timestamp := m.now().Format("20060102_150405")

	if m.summarizer != nil {
		summary := strings.TrimSpace(m.summarizer.Summarize(ctx, tail(contents, 10)))
		if Acceptable(summary, 20) {
			conversationID := "auto_migrate_" + timestamp
			if err := m.SaveConversationSummary(ctx, userID, summary, conversationID); err == nil {
				return m.finishMigration(ctx, userID, MigrationAI, conversationID)
			}
			m.logger.Warn("MEMORY", "Failed to save AI summary, using simple summary", map[string]interface{}{"user_id": userID})
		} else {
			m.logger.Warn("MEMORY", "Poor AI summary quality, using simple summary", map[string]interface{}{"user_id": userID})
		}
	}

	summary := "Auto-migrated conversation: " + strings.Join(tail(contents, 5), "; ")
	conversationID := "auto_migrate_simple_" + timestamp
	if err := m.SaveConversationSummary(ctx, userID, summary, conversationID); err != nil {
		m.logger.Error("MEMORY", "Failed to save even simple summary", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return MigrationNone, err
	}
	return m.finishMigration(ctx, userID, MigrationSimple, conversationID)
}

func (m *Manager) finishMigration(ctx context.Context, userID string, outcome MigrationOutcome, conversationID string) (MigrationOutcome, error) {
	if err := m.ClearShortTerm(ctx, userID); err != nil {
		return outcome, err
	}
	m.publish(ctx, events.MemoryMigrated(userID, string(outcome), conversationID))
	m.logger.Info("MEMORY", "Auto-migration completed", map[string]interface{}{"user_id": userID, "mode": outcome})
	return outcome, nil
}

// SummarizeTurn stores a summary of the recent conversation once a turn's
// combined history exceeds SummaryTrigger messages.
func (m *Manager) SummarizeTurn(ctx context.Context, userID string, all []state.Message) bool {
	if len(all) <= SummaryTrigger || m.summarizer == nil {
		return false
	}

	contents := meaningful(tail(all, 12), 200)
	if len(contents) < 3 {
		return false
	}

	summary := strings.TrimSpace(m.summarizer.Summarize(ctx, tail(contents, 8)))
	if !Acceptable(summary, 10) {
		m.logger.Warn("MEMORY", "Discarding poor quality summary", map[string]interface{}{"user_id": userID, "summary": summary})
		return false
	}

	conversationID := fmt.Sprintf("conv_%d", m.now().Unix())
	if err := m.SaveConversationSummary(ctx, userID, summary, conversationID); err != nil {
		m.logger.Error("MEMORY", "Failed to save conversation summary", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return false
	}
	m.publish(ctx, events.ConversationSummarized(userID, conversationID))
	return true
}

func (m *Manager) publish(ctx context.Context, e events.Event) {
	if err := m.publisher.Publish(ctx, e); err != nil {
		m.logger.Warn("MEMORY", "Failed to publish event", map[string]interface{}{"event": e.EventType(), "error": err.Error()})
	}
}

type longTermRecord struct {
	Data         json.RawMessage `json:"data"`
	CreatedAt    string          `json:"created_at"`
	UpdatedAt    string          `json:"updated_at"`
	AccessCount  int             `json:"access_count"`
	LastAccessed string          `json:"last_accessed,omitempty"`
}

func (m *Manager) timestamp() string {
	return m.now().Format(time.RFC3339)
}

func (m *Manager) writeRecord(ctx context.Context, key string, rec longTermRecord) error {
	encoded, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return m.kv.SetEx(ctx, key, string(encoded), m.cfg.LongTermTTL)
}

func (m *Manager) readRecord(ctx context.Context, key string) (*longTermRecord, error) {
	raw, found, err := m.kv.Get(ctx, key)
	if err != nil || !found {
		return nil, err
	}
	var rec longTermRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errCorrupt, key, err)
	}
	return &rec, nil
}

func (m *Manager) saveLongTerm(ctx context.Context, userID, memoryType string, data interface{}) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", memoryType, err)
	}

	key := LongTermKey(userID, memoryType)
	now := m.timestamp()
	rec := longTermRecord{Data: encoded, CreatedAt: now, UpdatedAt: now}

	existing, err := m.readRecord(ctx, key)
	if err != nil && !isCorrupt(err) {
		return err
	}
	if existing != nil {
		rec.AccessCount = existing.AccessCount
		if existing.CreatedAt != "" {
			rec.CreatedAt = existing.CreatedAt
		}
	}

	if err := m.writeRecord(ctx, key, rec); err != nil {
		return fmt.Errorf("failed to save %s: %w", memoryType, err)
	}
	m.logger.Info("MEMORY", "Saved long-term memory", map[string]interface{}{"user_id": userID, "type": memoryType})
	return nil
}

// loadLongTerm decodes the record into out, bumps its access count and
// rewrites it with a fresh TTL.
func (m *Manager) loadLongTerm(ctx context.Context, userID, memoryType string, out interface{}) (bool, error) {
	key := LongTermKey(userID, memoryType)
	rec, err := m.readRecord(ctx, key)
	if err != nil || rec == nil {
		return false, err
	}
	if err := json.Unmarshal(rec.Data, out); err != nil {
		return false, fmt.Errorf("%w: %s: %v", errCorrupt, memoryType, err)
	}

	rec.AccessCount++
	rec.LastAccessed = m.timestamp()
	if err := m.writeRecord(ctx, key, *rec); err != nil {
		m.logger.Warn("MEMORY", "Failed to update access count", map[string]interface{}{"user_id": userID, "type": memoryType, "error": err.Error()})
	}
	return true, nil
}

var errCorrupt = errors.New("corrupt long-term record")

func isCorrupt(err error) bool {
	return errors.Is(err, errCorrupt)
}

func (m *Manager) SaveLongTerm(ctx context.Context, userID, memoryType string, data interface{}) error {
	if !validMemoryType(memoryType) {
		return fmt.Errorf("%w: %q", ErrInvalidMemoryType, memoryType)
	}
	defer m.lock(userID)()
	return m.saveLongTerm(ctx, userID, memoryType, data)
}

// LoadLongTerm reports found=false when the user has no such record.
func (m *Manager) LoadLongTerm(ctx context.Context, userID, memoryType string, out interface{}) (bool, error) {
	if !validMemoryType(memoryType) {
		return false, fmt.Errorf("%w: %q", ErrInvalidMemoryType, memoryType)
	}
	defer m.lock(userID)()
	return m.loadLongTerm(ctx, userID, memoryType, out)
}

// LongTermTypes lists the memory types stored for a user, sorted. Keys that
// belong to another user sharing the prefix are skipped.
func (m *Manager) LongTermTypes(ctx context.Context, userID string) ([]string, error) {
	prefix := LongTermKey(userID, "")
	keys, err := m.kv.Keys(ctx, escapeGlob(prefix)+"*")
	if err != nil {
		return nil, fmt.Errorf("failed to list long-term memory: %w", err)
	}
	types := make([]string, 0, len(keys))
	for _, key := range keys {
		memoryType, ok := strings.CutPrefix(key, prefix)
		if ok && validMemoryType(memoryType) {
			types = append(types, memoryType)
		}
	}
	sort.Strings(types)
	return types, nil
}

func (m *Manager) DeleteLongTerm(ctx context.Context, userID, memoryType string) error {
	if !validMemoryType(memoryType) {
		return fmt.Errorf("%w: %q", ErrInvalidMemoryType, memoryType)
	}
	if err := m.kv.Del(ctx, LongTermKey(userID, memoryType)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", memoryType, err)
	}
	m.logger.Info("MEMORY", "Deleted long-term memory", map[string]interface{}{"user_id": userID, "type": memoryType})
	return nil
}

// SaveConversationSummary appends a summary, keeping the newest MaxSummaries.
// An empty conversationID becomes conv_<unix seconds>.
func (m *Manager) SaveConversationSummary(ctx context.Context, userID, summary, conversationID string) error {
	defer m.lock(userID)()

	if conversationID == "" {
		conversationID = fmt.Sprintf("conv_%d", m.now().Unix())
	}

	var summaries []state.ConversationSummary
	if _, err := m.loadLongTerm(ctx, userID, TypeConversationSummaries, &summaries); err != nil {
		m.logger.Warn("MEMORY", "Discarding unreadable summaries", map[string]interface{}{"user_id": userID, "error": err.Error()})
		summaries = nil
	}
	summaries = append(summaries, state.ConversationSummary{
		Summary:        summary,
		ConversationID: conversationID,
		Timestamp:      m.timestamp(),
	})
	summaries = tail(summaries, m.cfg.MaxSummaries)

	return m.saveLongTerm(ctx, userID, TypeConversationSummaries, summaries)
}

// ConversationSummaries returns up to limit summaries, oldest first.
func (m *Manager) ConversationSummaries(ctx context.Context, userID string, limit int) []state.ConversationSummary {
	var summaries []state.ConversationSummary
	if _, err := m.LoadLongTerm(ctx, userID, TypeConversationSummaries, &summaries); err != nil {
		m.logger.Error("MEMORY", "Failed to load summaries", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return []state.ConversationSummary{}
	}
	if summaries == nil {
		return []state.ConversationSummary{}
	}
	return tail(summaries, limit)
}

func (m *Manager) SavePreferences(ctx context.Context, userID string, prefs map[string]interface{}) error {
	return m.SaveLongTerm(ctx, userID, TypeUserPreferences, prefs)
}

// Preferences never returns nil.
func (m *Manager) Preferences(ctx context.Context, userID string) map[string]interface{} {
	prefs := map[string]interface{}{}
	if _, err := m.LoadLongTerm(ctx, userID, TypeUserPreferences, &prefs); err != nil {
		m.logger.Error("MEMORY", "Failed to load preferences", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return map[string]interface{}{}
	}
	if prefs == nil {
		return map[string]interface{}{}
	}
	return prefs
}

type userContext struct {
	Context   string `json:"context"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

func contextType(t string) string {
	if t == "" {
		return "general"
	}
	return t
}

// SaveUserContext stores a free-text note under context_<type>.
func (m *Manager) SaveUserContext(ctx context.Context, userID, text, ctxType string) error {
	ctxType = contextType(ctxType)
	return m.SaveLongTerm(ctx, userID, "context_"+ctxType, userContext{Context: text, Type: ctxType, Timestamp: m.timestamp()})
}

func (m *Manager) UserContext(ctx context.Context, userID, ctxType string) (string, bool) {
	var uc userContext
	found, err := m.LoadLongTerm(ctx, userID, "context_"+contextType(ctxType), &uc)
	if err != nil || !found {
		return "", false
	}
	return uc.Context, true
}

// Clear removes memory by scope: "all", "short_term", or a single
// long-term memory type.
func (m *Manager) Clear(ctx context.Context, userID, scope string) error {
	switch scope {
	case ScopeAll, "":
		if err := m.ClearShortTerm(ctx, userID); err != nil {
			return err
		}
		types, err := m.LongTermTypes(ctx, userID)
		if err != nil {
			return err
		}
		for _, t := range types {
			if err := m.DeleteLongTerm(ctx, userID, t); err != nil {
				return err
			}
		}
		return nil
	case ScopeShortTerm:
		return m.ClearShortTerm(ctx, userID)
	default:
		return m.DeleteLongTerm(ctx, userID, scope)
	}
}

// Snapshot runs the migration check and loads everything a turn needs.
func (m *Manager) Snapshot(ctx context.Context, userID string) state.MemorySnapshot {
	if outcome, err := m.AutoMigrate(ctx, userID); err != nil {
		m.logger.Warn("MEMORY", "Auto-migration failed", map[string]interface{}{"user_id": userID, "error": err.Error()})
	} else {
		m.logger.Debug("MEMORY", "Auto-migration check completed", map[string]interface{}{"user_id": userID, "outcome": outcome})
	}
	return state.MemorySnapshot{
		ShortTerm:   m.LoadShortTerm(ctx, userID),
		Preferences: m.Preferences(ctx, userID),
		Summaries:   m.ConversationSummaries(ctx, userID, 10),
	}
}

type Health struct {
	Status           string  `json:"status"`
	ResponseTimeMs   float64 `json:"response_time_ms,omitempty"`
	RedisVersion     string  `json:"redis_version,omitempty"`
	ConnectedClients string  `json:"connected_clients,omitempty"`
	UsedMemoryHuman  string  `json:"used_memory_human,omitempty"`
	Error            string  `json:"error,omitempty"`
}

func (m *Manager) Health(ctx context.Context) Health {
	start := time.Now()
	if err := m.kv.Ping(ctx); err != nil {
		return Health{Status: "unhealthy", Error: err.Error()}
	}
	elapsed := time.Since(start)

	info, err := m.kv.Info(ctx)
	if err != nil {
		return Health{Status: "unhealthy", Error: err.Error()}
	}
	return Health{
		Status:           "healthy",
		ResponseTimeMs:   math.Round(float64(elapsed.Microseconds())/10) / 100,
		RedisVersion:     valueOr(info, "redis_version", "unknown"),
		ConnectedClients: valueOr(info, "connected_clients", "0"),
		UsedMemoryHuman:  valueOr(info, "used_memory_human", "unknown"),
	}
}

func valueOr(m map[string]string, key, fallback string) string {
	if v, ok := m[key]; ok && v != "" {
		return v
	}
	return fallback
}
