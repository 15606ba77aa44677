package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ufrn-horarios/horarios-api/internal/models"
	"github.com/ufrn-horarios/horarios-api/internal/service"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
	"github.com/ufrn-horarios/horarios-api/pkg/response"
)

type componentService interface {
	List(ctx context.Context, filter models.ComponentFilter) ([]models.CurricularComponent, *models.Pagination, error)
	Get(ctx context.Context, code string) (*models.CurricularComponent, error)
	Create(ctx context.Context, req service.CreateComponentRequest) (*models.CurricularComponent, error)
	Update(ctx context.Context, code string, req service.UpdateComponentRequest) (*models.CurricularComponent, error)
	Delete(ctx context.Context, code string) error
}

// ComponentHandler handles curricular component endpoints.
type ComponentHandler struct {
	service componentService
}

// NewComponentHandler constructs a component handler.
func NewComponentHandler(svc componentService) *ComponentHandler {
	return &ComponentHandler{service: svc}
}

// List godoc
// @Summary List curricular components
// @Tags Componentes
// @Produce json
// @Param semester query int false "Filter by semester (0 for electives)"
// @Param department query string false "Filter by department"
// @Param mandatory query bool false "Filter by mandatory flag"
// @Param search query string false "Search by code or name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /componentes [get]
func (h *ComponentHandler) List(c *gin.Context) {
	var filter models.ComponentFilter
	semester, err := optionalInt(c, "semester")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semester must be an integer"))
		return
	}
	filter.Semester = semester
	filter.Department = strings.ToUpper(strings.TrimSpace(c.Query("department")))
	if raw := c.Query("mandatory"); raw != "" {
		mandatory, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "mandatory must be a boolean"))
			return
		}
		filter.Mandatory = &mandatory
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	components, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, components, pagination)
}

// Get godoc
// @Summary Get component by code
// @Tags Componentes
// @Produce json
// @Param code path string true "Component code"
// @Success 200 {object} response.Envelope
// @Router /componentes/{code} [get]
func (h *ComponentHandler) Get(c *gin.Context) {
	component, err := h.service.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, component, nil)
}

// Create godoc
// @Summary Create component
// @Tags Componentes
// @Accept json
// @Produce json
// @Param payload body service.CreateComponentRequest true "Component payload"
// @Success 201 {object} response.Envelope
// @Router /componentes [post]
func (h *ComponentHandler) Create(c *gin.Context) {
	var req service.CreateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	component, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, component)
}

// Update godoc
// @Summary Update component
// @Tags Componentes
// @Accept json
// @Produce json
// @Param code path string true "Component code"
// @Param payload body service.UpdateComponentRequest true "Component payload"
// @Success 200 {object} response.Envelope
// @Router /componentes/{code} [put]
func (h *ComponentHandler) Update(c *gin.Context) {
	var req service.UpdateComponentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	component, err := h.service.Update(c.Request.Context(), c.Param("code"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, component, nil)
}

// Delete godoc
// @Summary Delete component and its sections
// @Tags Componentes
// @Produce json
// @Param code path string true "Component code"
// @Success 204
// @Router /componentes/{code} [delete]
func (h *ComponentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("code")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
