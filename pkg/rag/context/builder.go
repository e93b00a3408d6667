package context

import (
	"encoding/json"
	"fmt"
	"strings"

	"agentic-rag-be/pkg/rag/search"
	"agentic-rag-be/pkg/rag/state"
)

const (
	DefaultScoreThreshold = 0.5
	DefaultUserTopK       = 10
	DefaultAdminTopK      = 5

	userHeader  = "=== TÀI LIỆU NGƯỜI DÙNG, USER, CÁ NHÂN ==="
	adminHeader = "=== TÀI LIỆU ADMIN, QUAN TRỊ, THÔNG TIN CHUNG ==="

	// NoUserDocuments is what the user_context field holds when nothing passed the threshold.
	NoUserDocuments = "No user documents found"
)

// Label prefixes each numbered document in a block.
type Label string

const (
	LabelDocument      Label = "Tài liệu"
	LabelUserDocument  Label = "Tài liệu người dùng"
	LabelAdminDocument Label = "Tài liệu quản trị"
)

// Builder turns reranked documents and memory into the reference text the
// grounded model answers from.
type Builder struct {
	threshold float64
	userTopK  int
	adminTopK int
}

func NewBuilder(threshold float64, userTopK, adminTopK int) *Builder {
	if userTopK <= 0 {
		userTopK = DefaultUserTopK
	}
	if adminTopK <= 0 {
		adminTopK = DefaultAdminTopK
	}
	return &Builder{threshold: threshold, userTopK: userTopK, adminTopK: adminTopK}
}

// Block keeps documents scoring at least the threshold, caps them at topK
// and numbers them from 1. It returns "" when nothing qualifies.
func (b *Builder) Block(docs []search.RetrievedDocument, topK int, label Label) string {
	parts := make([]string, 0, topK)
	for _, d := range docs {
		if len(parts) == topK {
			break
		}
		if d.RankScore() < b.threshold {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- %s %d (Điểm: %.2f) ---\n%s", label, len(parts)+1, d.RankScore(), d.Content))
	}
	return strings.Join(parts, "\n\n")
}

func (b *Builder) UserBlock(docs []search.RetrievedDocument, label Label) string {
	return b.Block(docs, b.userTopK, label)
}

func (b *Builder) AdminBlock(docs []search.RetrievedDocument, label Label) string {
	return b.Block(docs, b.adminTopK, label)
}

// Memory renders preferences and the last three summaries. Empty when the
// user has neither.
func Memory(prefs map[string]interface{}, summaries []state.ConversationSummary) string {
	var sb strings.Builder
	if len(prefs) > 0 {
		encoded, err := json.Marshal(prefs)
		if err == nil {
			sb.WriteString("\nUser preferences: ")
			sb.Write(encoded)
		}
	}
	if len(summaries) > 0 {
		sb.WriteString("\nPrevious conversations: ")
		sb.WriteString(JoinSummaries(summaries, 3))
	}
	return sb.String()
}

// JoinSummaries joins the text of the newest n summaries with "; ".
func JoinSummaries(summaries []state.ConversationSummary, n int) string {
	if len(summaries) > n {
		summaries = summaries[len(summaries)-n:]
	}
	texts := make([]string, len(summaries))
	for i, s := range summaries {
		texts[i] = s.Summary
	}
	return strings.Join(texts, "; ")
}

func identification(userID string) string {
	return fmt.Sprintf("--- USER IDENTIFICATION ---\nUser ID: %s\nDocuments automatically retrieved for this user.\n", userID)
}

func reminder(userID string) string {
	return fmt.Sprintf("\n\n--- SYSTEM REMINDER ---\nUser is already identified with ID: %s. Do not ask for name or identification.", userID)
}

// Combined assembles the full reference context for the parallel path.
func Combined(userID, userBlock, adminBlock, memory string) string {
	var sb strings.Builder
	sb.WriteString(identification(userID))

	sb.WriteString("\n" + userHeader + "\n")
	if userBlock != "" {
		sb.WriteString(userBlock)
	} else {
		sb.WriteString("No user documents found for this query, but user is already identified.")
	}

	sb.WriteString("\n\n" + adminHeader + "\n")
	if adminBlock != "" {
		sb.WriteString(adminBlock)
	} else {
		sb.WriteString("No admin documents found for this query.")
	}

	if memory != "" {
		sb.WriteString("\n\n--- MEMORY CONTEXT ---")
		sb.WriteString(memory)
	}
	sb.WriteString(reminder(userID))
	return sb.String()
}

// UserSection is the user half produced by the sequential path's first node.
func UserSection(userID, userBlock, memory string) string {
	var sb strings.Builder
	sb.WriteString(identification(userID))
	sb.WriteString("\n--- USER DOCUMENTS ---\n")
	if userBlock != "" {
		sb.WriteString(userBlock)
	} else {
		sb.WriteString("No user documents found for this query, but user is already identified.")
	}
	if memory != "" {
		sb.WriteString("\n\n--- MEMORY CONTEXT ---")
		sb.WriteString(memory)
	}
	return sb.String()
}

// Sequential joins a UserSection with the admin block.
func Sequential(userID, userSection, adminBlock string) string {
	var sb strings.Builder
	if userSection != "" {
		sb.WriteString(userHeader + "\n" + userSection + "\n\n")
	}
	sb.WriteString(adminHeader + "\n")
	if adminBlock != "" {
		sb.WriteString(adminBlock)
	} else {
		sb.WriteString("No admin documents found for this query.")
	}
	sb.WriteString(reminder(userID))
	return sb.String()
}
