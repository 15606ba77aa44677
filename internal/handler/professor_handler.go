package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ufrn-horarios/horarios-api/internal/models"
	"github.com/ufrn-horarios/horarios-api/internal/service"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
	"github.com/ufrn-horarios/horarios-api/pkg/response"
)

type professorService interface {
	List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Professor, error)
	Create(ctx context.Context, req service.ProfessorRequest) (*models.Professor, error)
	Update(ctx context.Context, id string, req service.ProfessorRequest) (*models.Professor, error)
	Delete(ctx context.Context, id string) error
}

// ProfessorHandler handles professor endpoints.
type ProfessorHandler struct {
	service professorService
}

// NewProfessorHandler constructs a professor handler.
func NewProfessorHandler(svc professorService) *ProfessorHandler {
	return &ProfessorHandler{service: svc}
}

// List godoc
// @Summary List professors
// @Tags Professores
// @Produce json
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /professores [get]
func (h *ProfessorHandler) List(c *gin.Context) {
	var filter models.ProfessorFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	professors, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professors, pagination)
}

// Get godoc
// @Summary Get professor by id
// @Tags Professores
// @Produce json
// @Param id path string true "Professor ID"
// @Success 200 {object} response.Envelope
// @Router /professores/{id} [get]
func (h *ProfessorHandler) Get(c *gin.Context) {
	professor, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professor, nil)
}

// Create godoc
// @Summary Create professor
// @Description Weekly hours always start at zero; they change only through section assignments.
// @Tags Professores
// @Accept json
// @Produce json
// @Param payload body service.ProfessorRequest true "Professor payload"
// @Success 201 {object} response.Envelope
// @Router /professores [post]
func (h *ProfessorHandler) Create(c *gin.Context) {
	var req service.ProfessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	professor, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, professor)
}

// Update godoc
// @Summary Rename professor
// @Tags Professores
// @Accept json
// @Produce json
// @Param id path string true "Professor ID"
// @Param payload body service.ProfessorRequest true "Professor payload"
// @Success 200 {object} response.Envelope
// @Router /professores/{id} [put]
func (h *ProfessorHandler) Update(c *gin.Context) {
	var req service.ProfessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	professor, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, professor, nil)
}

// Delete godoc
// @Summary Delete professor
// @Tags Professores
// @Produce json
// @Param id path string true "Professor ID"
// @Success 204
// @Router /professores/{id} [delete]
func (h *ProfessorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
