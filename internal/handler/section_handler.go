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

type sectionService interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.SectionDetail, error)
	Create(ctx context.Context, req service.SectionRequest) (*models.SectionDetail, error)
	Update(ctx context.Context, id string, req service.SectionRequest) (*models.SectionDetail, error)
	Delete(ctx context.Context, id string) error
	AddProfessor(ctx context.Context, sectionID string, req service.AssignProfessorRequest) (*models.SectionDetail, error)
	RemoveProfessor(ctx context.Context, sectionID, professorID string) (*models.SectionDetail, error)
}

// SectionHandler handles section ("turma") endpoints.
type SectionHandler struct {
	service sectionService
}

// NewSectionHandler constructs a section handler.
func NewSectionHandler(svc sectionService) *SectionHandler {
	return &SectionHandler{service: svc}
}

// List godoc
// @Summary List sections
// @Tags Turmas
// @Produce json
// @Param component query string false "Filter by component code"
// @Param semester query int false "Filter by semester"
// @Param professor query string false "Filter by professor ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /turmas [get]
func (h *SectionHandler) List(c *gin.Context) {
	var filter models.SectionFilter
	semester, err := optionalInt(c, "semester")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semester must be an integer"))
		return
	}
	filter.Semester = semester
	filter.ComponentCode = strings.TrimSpace(c.Query("component"))
	filter.ProfessorID = strings.TrimSpace(c.Query("professor"))
	filter.Page, filter.PageSize = pageParams(c)

	sections, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, pagination)
}

// Get godoc
// @Summary Get section by id
// @Tags Turmas
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /turmas/{id} [get]
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Create godoc
// @Summary Create section
// @Description Validates the schedule against the component load and charges the unit hours to every professor.
// @Tags Turmas
// @Accept json
// @Produce json
// @Param payload body service.SectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /turmas [post]
func (h *SectionHandler) Create(c *gin.Context) {
	var req service.SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}

// Update godoc
// @Summary Update section
// @Tags Turmas
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.SectionRequest true "Section payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /turmas/{id} [put]
func (h *SectionHandler) Update(c *gin.Context) {
	var req service.SectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// Delete godoc
// @Summary Delete section
// @Tags Turmas
// @Produce json
// @Param id path string true "Section ID"
// @Success 204
// @Router /turmas/{id} [delete]
func (h *SectionHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddProfessor godoc
// @Summary Assign professor to section
// @Tags Turmas
// @Accept json
// @Produce json
// @Param id path string true "Section ID"
// @Param payload body service.AssignProfessorRequest true "Professor"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /turmas/{id}/professores [post]
func (h *SectionHandler) AddProfessor(c *gin.Context) {
	var req service.AssignProfessorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.service.AddProfessor(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}

// RemoveProfessor godoc
// @Summary Remove professor from section
// @Tags Turmas
// @Produce json
// @Param id path string true "Section ID"
// @Param professorId path string true "Professor ID"
// @Success 200 {object} response.Envelope
// @Router /turmas/{id}/professores/{professorId} [delete]
func (h *SectionHandler) RemoveProfessor(c *gin.Context) {
	section, err := h.service.RemoveProfessor(c.Request.Context(), c.Param("id"), c.Param("professorId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}
