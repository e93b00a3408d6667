package controller

import (
	"agentic-rag-be/internal/dto"
	"agentic-rag-be/internal/pkg/serverutils"
	"agentic-rag-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISearchController interface {
	RegisterRoutes(r fiber.Router)
	SearchUserDocuments(ctx *fiber.Ctx) error
	SearchAdminDocuments(ctx *fiber.Ctx) error
}

type searchController struct {
	service service.ISearchService
}

func NewSearchController(service service.ISearchService) ISearchController {
	return &searchController{service: service}
}

func (c *searchController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/search")
	h.Post("/user-documents", c.SearchUserDocuments)
	h.Post("/admin-documents", c.SearchAdminDocuments)
}

func (c *searchController) SearchUserDocuments(ctx *fiber.Ctx) error {
	var req dto.SearchUserDocumentsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SearchUserDocuments(ctx.UserContext(), &req, serverutils.ClientID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *searchController) SearchAdminDocuments(ctx *fiber.Ctx) error {
	var req dto.SearchAdminDocumentsRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SearchAdminDocuments(ctx.UserContext(), &req, serverutils.ClientID(ctx))
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}
