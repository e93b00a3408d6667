package service

import (
	"context"
	"errors"
	"fmt"

	"agentic-rag-be/internal/dto"
	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/rag/memory"
	"agentic-rag-be/pkg/rag/state"

	"github.com/gofiber/fiber/v2"
)

const (
	previewLength = 100
	summaryLimit  = 10
)

// MemoryStore is the slice of the memory manager exposed over HTTP.
type MemoryStore interface {
	LoadShortTerm(ctx context.Context, userID string) []state.Message
	ConversationSummaries(ctx context.Context, userID string, limit int) []state.ConversationSummary
	Preferences(ctx context.Context, userID string) map[string]interface{}
	SavePreferences(ctx context.Context, userID string, prefs map[string]interface{}) error
	LongTermTypes(ctx context.Context, userID string) ([]string, error)
	Clear(ctx context.Context, userID, scope string) error
	Health(ctx context.Context) memory.Health
}

type IMemoryService interface {
	Get(ctx context.Context, userID string) (*dto.UserMemoryResponse, error)
	Clear(ctx context.Context, userID, scope string) (*dto.MemoryActionResponse, error)
	SavePreferences(ctx context.Context, userID string, prefs map[string]interface{}) (*dto.MemoryActionResponse, error)
}

type memoryService struct {
	store  MemoryStore
	logger logger.ILogger
}

func NewMemoryService(store MemoryStore, log logger.ILogger) IMemoryService {
	return &memoryService{store: store, logger: log}
}

func (s *memoryService) Get(ctx context.Context, userID string) (*dto.UserMemoryResponse, error) {
	types, err := s.store.LongTermTypes(ctx, userID)
	if err != nil {
		s.logger.Error("API", "Failed to list memory types", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return nil, fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to retrieve memory: %v", err))
	}
	if types == nil {
		types = []string{}
	}

	messages := s.store.LoadShortTerm(ctx, userID)
	previews := make([]dto.MessagePreview, 0, len(messages))
	for _, m := range messages {
		previews = append(previews, dto.MessagePreview{
			Type:    string(m.Type),
			Content: truncate(m.Content, previewLength),
		})
	}

	return &dto.UserMemoryResponse{
		UserID: userID,
		ShortTermMemory: dto.ShortTermMemory{
			MessageCount: len(messages),
			Messages:     previews,
		},
		ConversationSummaries: s.store.ConversationSummaries(ctx, userID, summaryLimit),
		UserPreferences:       s.store.Preferences(ctx, userID),
		LongTermMemoryTypes:   types,
		Success:               true,
	}, nil
}

func (s *memoryService) Clear(ctx context.Context, userID, scope string) (*dto.MemoryActionResponse, error) {
	if scope == "" {
		scope = memory.ScopeAll
	}
	if err := s.store.Clear(ctx, userID, scope); err != nil {
		if errors.Is(err, memory.ErrInvalidMemoryType) {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid memory type '%s'", scope))
		}
		s.logger.Error("API", "Failed to clear memory", map[string]interface{}{"user_id": userID, "scope": scope, "error": err.Error()})
		return nil, fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to clear memory: %v", err))
	}
	s.logger.Info("API", "Memory cleared", map[string]interface{}{"user_id": userID, "scope": scope})

	var msg string
	switch scope {
	case memory.ScopeAll:
		msg = fmt.Sprintf("All memory cleared for user %s", userID)
	case memory.ScopeShortTerm:
		msg = fmt.Sprintf("Short-term memory cleared for user %s", userID)
	default:
		msg = fmt.Sprintf("Memory type '%s' cleared for user %s", scope, userID)
	}
	return &dto.MemoryActionResponse{Message: msg, Success: true}, nil
}

func (s *memoryService) SavePreferences(ctx context.Context, userID string, prefs map[string]interface{}) (*dto.MemoryActionResponse, error) {
	if len(prefs) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "No preferences data provided")
	}
	if err := s.store.SavePreferences(ctx, userID, prefs); err != nil {
		s.logger.Error("API", "Failed to save preferences", map[string]interface{}{"user_id": userID, "error": err.Error()})
		return nil, fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf("Failed to save preferences: %v", err))
	}
	return &dto.MemoryActionResponse{Message: fmt.Sprintf("Preferences saved for user %s", userID), Success: true}, nil
}
