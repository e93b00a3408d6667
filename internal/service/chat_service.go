package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"agentic-rag-be/internal/dto"
	"agentic-rag-be/internal/observability"
	"agentic-rag-be/internal/pkg/logger"
	"agentic-rag-be/pkg/events"
	"agentic-rag-be/pkg/rag/executor"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ErrAgentFailed marks a turn whose graph run aborted. The accompanying
// response still carries the request id for log lookup.
var ErrAgentFailed = errors.New("agent execution failed")

// ChatGraph is the part of the executor the chat service drives.
type ChatGraph interface {
	Run(ctx context.Context, userID, input string) (executor.Result, error)
}

type IChatService interface {
	Chat(ctx context.Context, req *dto.ChatRequest, clientID string) (*dto.ChatResponse, error)
}

type chatService struct {
	graph     ChatGraph
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    logger.ILogger
}

func NewChatService(graph ChatGraph, publisher events.Publisher, metrics *observability.Metrics, log logger.ILogger) IChatService {
	if publisher == nil {
		publisher = events.Nop
	}
	return &chatService{
		graph:     graph,
		publisher: publisher,
		metrics:   metrics,
		logger:    log,
	}
}

func newRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

// errorKind names the failure the way the client-facing message shows it.
func errorKind(err error) string {
	switch {
	case errors.Is(err, executor.ErrStepLimitExceeded):
		return "StepLimitExceeded"
	case errors.Is(err, executor.ErrNotInitialized):
		return "NotInitialized"
	case errors.Is(err, context.DeadlineExceeded):
		return "DeadlineExceeded"
	case errors.Is(err, context.Canceled):
		return "Canceled"
	default:
		return "InternalError"
	}
}

func (s *chatService) Chat(ctx context.Context, req *dto.ChatRequest, clientID string) (*dto.ChatResponse, error) {
	requestID := newRequestID()
	start := time.Now()

	query := req.Message
	if strings.TrimSpace(query) == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Empty query not allowed")
	}

	userID := req.UserID
	if userID == "" {
		userID = clientID
	}
	s.logger.Info("API", "Processing chat query", map[string]interface{}{
		"request_id": requestID,
		"user_id":    userID,
		"query":      truncate(query, 100),
	})

	if s.graph == nil {
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, "Agent graph not initialised yet")
	}

	graphStart := time.Now()
	result, err := s.graph.Run(ctx, userID, query)
	if err != nil {
		if errors.Is(err, executor.ErrNotInitialized) {
			return nil, fiber.NewError(fiber.StatusServiceUnavailable, "Agent graph not initialised yet")
		}
		s.logger.Error("API", "Graph execution failed", map[string]interface{}{
			"request_id": requestID,
			"user_id":    userID,
			"error":      err.Error(),
		})
		elapsed := time.Since(start)
		s.record(ctx, requestID, userID, result, false, elapsed)
		return &dto.ChatResponse{
			RequestID: requestID,
			UserID:    userID,
			Error:     fmt.Sprintf("Lỗi thực thi agent: %s. Xem log (ID: %s).", errorKind(err), requestID),
			Success:   false,
			Timing:    dto.Timing{TotalSeconds: seconds(elapsed)},
		}, fmt.Errorf("%w: %v", ErrAgentFailed, err)
	}
	graphTime := seconds(time.Since(graphStart))
	s.logger.Info("API", "Graph processing finished", map[string]interface{}{
		"request_id": requestID,
		"seconds":    graphTime,
		"steps":      result.Steps,
	})

	response := fmt.Sprintf("Lỗi: Không thể xử lý yêu cầu, không tìm thấy phản hồi cuối cùng (ID: %s).", requestID)
	final, ok := executor.FinalAnswer(result.State)
	if ok {
		response = final.Content
	} else {
		s.logger.Error("API", "Final state has no answer message", map[string]interface{}{
			"request_id": requestID,
			"messages":   len(result.State.Messages),
		})
	}

	mem := result.State.Memory
	elapsed := time.Since(start)
	s.record(ctx, requestID, userID, result, ok, elapsed)

	return &dto.ChatResponse{
		RequestID: requestID,
		UserID:    userID,
		Response:  response,
		Success:   ok,
		MemoryStats: &dto.MemoryStats{
			ShortTermMessages:     len(mem.ShortTerm),
			UserPreferencesLoaded: len(mem.Preferences) > 0,
			ConversationSummaries: len(mem.Summaries),
		},
		Timing: dto.Timing{
			TotalSeconds:           seconds(elapsed),
			GraphProcessingSeconds: &graphTime,
		},
	}, nil
}

func (s *chatService) record(ctx context.Context, requestID, userID string, result executor.Result, success bool, elapsed time.Duration) {
	route := "direct"
	if result.Retrieved() {
		route = "retrieval"
	}
	status := "ok"
	if !success {
		status = "error"
	}
	queryType := ""
	if c := result.State.Classification; c != nil {
		queryType = string(c.QueryType)
	}

	if s.metrics != nil {
		s.metrics.ChatRequests.WithLabelValues(route, status).Inc()
		s.metrics.ChatLatency.Observe(elapsed.Seconds())
	}
	event := events.ChatCompleted(requestID, userID, queryType, result.Retrieved(), success, elapsed)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("EVENTS", "Failed to publish chat event", map[string]interface{}{"request_id": requestID, "error": err.Error()})
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
