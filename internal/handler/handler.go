package handler

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/hmwcs/id-service/internal/generator"
	"github.com/hmwcs/id-service/pkg/log"
	"github.com/hmwcs/id-service/pkg/response"
)

const maxBatchCount = 1000

// Handler serves the ID generation API over HTTP.
type Handler struct {
	snowflake  *generator.SnowflakeGenerator
	generators map[string]generator.Generator
}

// NewHandler creates an HTTP handler. The snowflake generator is registered
// under "snowflake" in addition to serving parse/validate requests.
func NewHandler(snowflake *generator.SnowflakeGenerator, opaque map[string]generator.Generator) *Handler {
	generators := map[string]generator.Generator{"snowflake": snowflake}
	for name, gen := range opaque {
		generators[name] = gen
	}
	return &Handler{
		snowflake:  snowflake,
		generators: generators,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		ids := api.Group("/ids")
		{
			ids.POST("", h.Generate)
			ids.POST("/batch", h.GenerateBatch)
			ids.POST("/parse", h.Parse)
			ids.POST("/validate", h.Validate)
		}
	}
}

type generateRequest struct {
	Type string `json:"type"`
}

type batchRequest struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type idRequest struct {
	ID string `json:"id" binding:"required"`
}

func (h *Handler) generatorFor(idType string) (generator.Generator, error) {
	if idType == "" {
		idType = "snowflake"
	}
	gen, ok := h.generators[idType]
	if !ok {
		return nil, fmt.Errorf("unknown id type %q", idType)
	}
	return gen, nil
}

// Health reports service liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

// Generate mints a single ID of the requested type (snowflake by default).
func (h *Handler) Generate(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		l.Warn().Err(err).Msg("invalid generate request")
		response.BadRequest(c, err.Error())
		return
	}

	gen, err := h.generatorFor(req.Type)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	id, err := gen.Generate()
	if err != nil {
		h.generateError(c, err)
		return
	}

	response.Success(c, gin.H{"id": id})
}

// GenerateBatch mints between 1 and 1000 IDs of the requested type.
func (h *Handler) GenerateBatch(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid batch request")
		response.BadRequest(c, err.Error())
		return
	}

	if req.Count < 1 || req.Count > maxBatchCount {
		response.BadRequest(c, fmt.Sprintf("count must be between 1 and %d, got %d", maxBatchCount, req.Count))
		return
	}

	gen, err := h.generatorFor(req.Type)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ids, err := gen.GenerateBatch(req.Count)
	if err != nil {
		h.generateError(c, err)
		return
	}

	response.Success(c, gin.H{"ids": ids})
}

// Parse decodes the fields of a snowflake ID.
func (h *Handler) Parse(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req idRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid parse request")
		response.BadRequest(c, err.Error())
		return
	}

	parsed, err := h.snowflake.Parse(req.ID)
	if err != nil {
		response.UnprocessableEntity(c, err.Error())
		return
	}

	response.Success(c, parsed)
}

// Validate checks whether an ID is a plausible snowflake ID.
func (h *Handler) Validate(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req idRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("invalid validate request")
		response.BadRequest(c, err.Error())
		return
	}

	valid, reason := h.snowflake.Validate(req.ID)
	response.Success(c, gin.H{"valid": valid, "reason": reason})
}

// generateError maps generation failures to HTTP statuses. A clock regression
// clears once the clock catches up, so it maps to 503 and the caller decides
// whether to retry.
func (h *Handler) generateError(c *gin.Context, err error) {
	l := log.Ctx(c.Request.Context())
	if errors.Is(err, generator.ErrClockRegressed) {
		l.Error().Err(err).Msg("clock regression detected")
		response.ServiceUnavailable(c, err.Error())
		return
	}
	l.Error().Err(err).Msg("id generation failed")
	response.InternalError(c, "failed to generate id")
}
