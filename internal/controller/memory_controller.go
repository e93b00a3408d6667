package controller

import (
	"agentic-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IMemoryController interface {
	RegisterRoutes(r fiber.Router)
	Show(ctx *fiber.Ctx) error
	Clear(ctx *fiber.Ctx) error
	SavePreferences(ctx *fiber.Ctx) error
}

type memoryController struct {
	service service.IMemoryService
}

func NewMemoryController(service service.IMemoryService) IMemoryController {
	return &memoryController{service: service}
}

func (c *memoryController) RegisterRoutes(r fiber.Router) {
	r.Get("/memory/:user_id", c.Show)
	r.Delete("/memory/:user_id", c.Clear)
	r.Post("/preferences/:user_id", c.SavePreferences)
}

func (c *memoryController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Get(ctx.UserContext(), ctx.Params("user_id"))
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *memoryController) Clear(ctx *fiber.Ctx) error {
	res, err := c.service.Clear(ctx.UserContext(), ctx.Params("user_id"), ctx.Query("type", "all"))
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *memoryController) SavePreferences(ctx *fiber.Ctx) error {
	var prefs map[string]interface{}
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&prefs); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid preferences body")
		}
	}

	res, err := c.service.SavePreferences(ctx.UserContext(), ctx.Params("user_id"), prefs)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}
