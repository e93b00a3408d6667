package controller

import (
	"net/http"

	"agentic-rag-be/internal/dto"
	"agentic-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

type ISystemController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	DebugTools(ctx *fiber.Ctx) error
	ListTools(ctx *fiber.Ctx) error
	Logs(ctx *fiber.Ctx) error
	PerformanceTest(ctx *fiber.Ctx) error
}

type systemController struct {
	service        service.IDiagnosticsService
	metricsHandler http.Handler
}

func NewSystemController(service service.IDiagnosticsService, metricsHandler http.Handler) ISystemController {
	return &systemController{service: service, metricsHandler: metricsHandler}
}

func (c *systemController) RegisterRoutes(r fiber.Router) {
	r.Get("/health", c.Health)
	r.Get("/metrics", adaptor.HTTPHandler(c.metricsHandler))

	r.Post("/debug/tools", c.DebugTools)
	r.Get("/debug/tools", c.ListTools)
	r.Get("/debug/logs", c.Logs)
	r.Post("/test/performance", c.PerformanceTest)
}

func (c *systemController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(c.service.Health(ctx.UserContext()))
}

func (c *systemController) DebugTools(ctx *fiber.Ctx) error {
	var req dto.DebugToolsRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	return ctx.JSON(c.service.DebugTools(ctx.UserContext(), &req))
}

func (c *systemController) ListTools(ctx *fiber.Ctx) error {
	return ctx.JSON(c.service.ToolNames())
}

func (c *systemController) Logs(ctx *fiber.Ctx) error {
	res, err := c.service.Logs(dto.LogsQuery{
		Level:     ctx.Query("level"),
		RequestID: ctx.Query("request_id"),
		Limit:     ctx.QueryInt("limit", 50),
		Offset:    ctx.QueryInt("offset", 0),
	})
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *systemController) PerformanceTest(ctx *fiber.Ctx) error {
	var req dto.PerformanceTestRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}

	return ctx.JSON(c.service.PerformanceTest(ctx.UserContext(), &req))
}
