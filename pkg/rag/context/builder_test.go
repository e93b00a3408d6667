package context

import (
	"strings"
	"testing"

	"agentic-rag-be/pkg/rag/search"
	"agentic-rag-be/pkg/rag/state"

	"github.com/stretchr/testify/assert"
)

func reranked(content string, score float64) search.RetrievedDocument {
	return search.RetrievedDocument{Content: content, NewScore: score, Reranked: true}
}

func TestBlock_ThresholdAndTopK(t *testing.T) {
	b := NewBuilder(0.5, 2, 1)
	docs := []search.RetrievedDocument{
		reranked("refunds within 30 days", 1.0),
		reranked("unrelated", 0.1),
		reranked("store hours", 0.7),
		reranked("cut by top k", 0.5),
	}

	got := b.UserBlock(docs, LabelDocument)

	assert.Equal(t, "--- Tài liệu 1 (Điểm: 1.00) ---\nrefunds within 30 days\n\n--- Tài liệu 2 (Điểm: 0.70) ---\nstore hours", got)
	assert.Equal(t, "--- Tài liệu quản trị 1 (Điểm: 1.00) ---\nrefunds within 30 days", b.AdminBlock(docs, LabelAdminDocument))
}

func TestBlock_NothingQualifies(t *testing.T) {
	b := NewBuilder(0.5, 10, 5)
	assert.Empty(t, b.UserBlock([]search.RetrievedDocument{reranked("x", 0.4)}, LabelDocument))
	assert.Empty(t, b.UserBlock(nil, LabelDocument))
}

func TestBlock_UnrerankedUsesRetrievalScore(t *testing.T) {
	b := NewBuilder(0.5, 10, 5)
	docs := []search.RetrievedDocument{{Content: "fallback listing", Score: 0.5}, {Content: "weak", Score: 0.2}}

	got := b.UserBlock(docs, LabelDocument)

	assert.Equal(t, "--- Tài liệu 1 (Điểm: 0.50) ---\nfallback listing", got)
}

func TestCombined(t *testing.T) {
	memory := Memory(
		map[string]interface{}{"language": "vi"},
		[]state.ConversationSummary{{Summary: "s1"}, {Summary: "s2"}, {Summary: "s3"}, {Summary: "s4"}},
	)

	got := Combined("u1", "", "--- Tài liệu 1 (Điểm: 1.00) ---\npolicy", memory)

	assert.True(t, strings.HasPrefix(got, "--- USER IDENTIFICATION ---\nUser ID: u1\n"))
	assert.Contains(t, got, "=== TÀI LIỆU NGƯỜI DÙNG, USER, CÁ NHÂN ===\nNo user documents found for this query, but user is already identified.")
	assert.Contains(t, got, "=== TÀI LIỆU ADMIN, QUAN TRỊ, THÔNG TIN CHUNG ===\n--- Tài liệu 1 (Điểm: 1.00) ---\npolicy")
	assert.Contains(t, got, "--- MEMORY CONTEXT ---\nUser preferences: {\"language\":\"vi\"}\nPrevious conversations: s2; s3; s4")
	assert.True(t, strings.HasSuffix(got, "User is already identified with ID: u1. Do not ask for name or identification."))
}

func TestCombined_NoMemorySection(t *testing.T) {
	got := Combined("u1", "a", "b", Memory(nil, nil))
	assert.NotContains(t, got, "MEMORY CONTEXT")
}

func TestSequential(t *testing.T) {
	section := UserSection("u1", "", "")
	got := Sequential("u1", section, "")

	assert.Contains(t, got, "--- USER DOCUMENTS ---\nNo user documents found")
	assert.Contains(t, got, "No admin documents found for this query.")
	assert.Contains(t, got, "--- SYSTEM REMINDER ---")
}
