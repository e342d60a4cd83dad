package survey

import (
	"errors"

	"schema-sync/core/apperrors"
	"schema-sync/core/logger"
	"schema-sync/core/schema"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for response schemas.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the schema routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/schemas")
	group.Get("/", h.HandleListSchemas)
	group.Get("/:slug", h.HandleGetSchema)
	group.Post("/:slug/sync", h.HandleSyncSchema)
	group.Get("/:slug/responses", h.HandleListResponses)
	group.Post("/:slug/responses", h.HandleSubmitResponse)
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrInvalidRecord), apperrors.IsAuthoringError(err):
		return fiber.StatusUnprocessableEntity
	case apperrors.IsStoreError(err), errors.Is(err, apperrors.ErrCacheUnavailable):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	status := statusFor(err)
	l := logger.WithRayID(h.service.logger, c)
	if status >= fiber.StatusInternalServerError {
		l.Error(msg, zap.Error(err))
	} else {
		l.Warn(msg, zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func responseJSON(r *schema.Record) fiber.Map {
	m := fiber.Map{schema.PrimaryKey: r.ID}
	for k, v := range r.Map() {
		m[k] = v
	}
	return m
}

// HandleListSchemas returns every response schema.
func (h *Handler) HandleListSchemas(c *fiber.Ctx) error {
	schemas, err := h.service.ListSchemas(c.Context())
	if err != nil {
		return h.fail(c, "Failed to list schemas", err)
	}
	return c.JSON(schemas)
}

// HandleGetSchema returns one response schema.
// ?regenerate=true discards the resident schema first.
func (h *Handler) HandleGetSchema(c *fiber.Ctx) error {
	slug := c.Params("slug")
	sch, err := h.service.ResponseSchema(c.Context(), slug, c.QueryBool("regenerate", false))
	if err != nil {
		return h.fail(c, "Failed to build schema", err)
	}
	return c.JSON(sch)
}

// HandleSyncSchema regenerates a schema, reconciles its table and publishes it.
// ?dry_run=true only reports the pending changes.
func (h *Handler) HandleSyncSchema(c *fiber.Ctx) error {
	slug := c.Params("slug")
	if c.QueryBool("dry_run", false) {
		plan, err := h.service.PlanSync(c.Context(), slug)
		if err != nil {
			return h.fail(c, "Schema sync plan failed", err)
		}
		return c.JSON(plan)
	}

	result, err := h.service.Resync(c.Context(), slug)
	if err != nil {
		return h.fail(c, "Schema sync failed", err)
	}
	logger.WithRayID(h.service.logger, c).Info("Schema synced",
		zap.String("survey", slug),
		zap.Bool("created", result.Created),
		zap.Strings("added", result.Added))
	return c.JSON(result)
}

// HandleListResponses returns stored responses, paginated with ?limit= and ?offset=.
func (h *Handler) HandleListResponses(c *fiber.Ctx) error {
	slug := c.Params("slug")
	records, err := h.service.ListResponses(c.Context(), slug, c.QueryInt("limit", DefaultPageSize), c.QueryInt("offset", 0))
	if err != nil {
		return h.fail(c, "Failed to list responses", err)
	}
	out := make([]fiber.Map, 0, len(records))
	for _, r := range records {
		out = append(out, responseJSON(r))
	}
	return c.JSON(out)
}

// HandleSubmitResponse validates a JSON object of answers and stores it.
func (h *Handler) HandleSubmitResponse(c *fiber.Ctx) error {
	slug := c.Params("slug")
	var answers map[string]any
	if err := c.BodyParser(&answers); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	record, err := h.service.SubmitResponse(c.Context(), slug, answers)
	if err != nil {
		return h.fail(c, "Failed to store response", err)
	}
	return c.Status(fiber.StatusCreated).JSON(responseJSON(record))
}
