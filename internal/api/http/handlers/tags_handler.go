package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskcore/helpdesk-service/internal/api/dto"
	"github.com/deskcore/helpdesk-service/internal/service"
	apperrors "github.com/deskcore/helpdesk-service/pkg/util/errorutil"
)

// TagsHandler manages tag catalog endpoints.
type TagsHandler struct {
	service *service.TagService
}

// NewTagsHandler constructs handler.
func NewTagsHandler(tagService *service.TagService) *TagsHandler {
	return &TagsHandler{service: tagService}
}

// CreateTag POST /tags.
func (h *TagsHandler) CreateTag(c *fiber.Ctx) error {
	var req dto.CreateTagRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	tag, err := h.service.CreateTag(c.Context(), service.TagInput{
		Name:        req.Name,
		Color:       req.Color,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": tagResponse(*tag)})
}

// ListTags GET /tags.
func (h *TagsHandler) ListTags(c *fiber.Ctx) error {
	tags, err := h.service.ListTags(c.Context())
	if err != nil {
		return err
	}
	items := make([]dto.TagResponse, 0, len(tags))
	for _, tag := range tags {
		items = append(items, tagResponse(tag))
	}
	return c.JSON(fiber.Map{"data": items})
}
