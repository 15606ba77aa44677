package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ufrn-horarios/horarios-api/internal/dto"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
	"github.com/ufrn-horarios/horarios-api/pkg/response"
)

type scheduleService interface {
	Decode(ctx context.Context, req dto.DecodeScheduleRequest) (*dto.DecodeScheduleResponse, error)
	ListByComponent(ctx context.Context, code string) ([]dto.SectionSchedule, bool, error)
	ListBySemester(ctx context.Context, semester int) ([]dto.SectionSchedule, bool, error)
	ListByProfessor(ctx context.Context, professorID string) ([]dto.SectionSchedule, bool, error)
	Conflicts(ctx context.Context) (*dto.ConflictReport, bool, error)
}

type exportService interface {
	Export(ctx context.Context, req dto.ExportRequest) (*dto.ExportResult, error)
}

// ScheduleHandler serves the horarios views, decoding and exports.
type ScheduleHandler struct {
	schedules scheduleService
	exports   exportService
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(schedules scheduleService, exports exportService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, exports: exports}
}

// ByComponent godoc
// @Summary Schedules of a component's sections
// @Tags Horarios
// @Produce json
// @Param code path string true "Component code"
// @Success 200 {object} response.Envelope
// @Router /horarios/componentes/{code} [get]
func (h *ScheduleHandler) ByComponent(c *gin.Context) {
	items, cacheHit, err := h.schedules.ListByComponent(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, requestMeta(c, cacheHit))
}

// BySemester godoc
// @Summary Schedules of every section in a semester
// @Tags Horarios
// @Produce json
// @Param semester path int true "Semester (0 for electives)"
// @Success 200 {object} response.Envelope
// @Router /horarios/semestre/{semester} [get]
func (h *ScheduleHandler) BySemester(c *gin.Context) {
	semester, err := strconv.Atoi(c.Param("semester"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "semester must be an integer"))
		return
	}
	items, cacheHit, err := h.schedules.ListBySemester(c.Request.Context(), semester)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, requestMeta(c, cacheHit))
}

// ByProfessor godoc
// @Summary Schedules of a professor's sections
// @Tags Horarios
// @Produce json
// @Param id path string true "Professor ID"
// @Success 200 {object} response.Envelope
// @Router /horarios/professores/{id} [get]
func (h *ScheduleHandler) ByProfessor(c *gin.Context) {
	items, cacheHit, err := h.schedules.ListByProfessor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil, requestMeta(c, cacheHit))
}

// Conflicts godoc
// @Summary Conflict report
// @Description Pairs of sections sharing slots within a semester or through a professor.
// @Tags Horarios
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /horarios/conflitos [get]
func (h *ScheduleHandler) Conflicts(c *gin.Context) {
	report, cacheHit, err := h.schedules.Conflicts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil, requestMeta(c, cacheHit))
}

// Decode godoc
// @Summary Decode a schedule string
// @Tags Horarios
// @Accept json
// @Produce json
// @Param payload body dto.DecodeScheduleRequest true "Schedule"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /horarios/decode [post]
func (h *ScheduleHandler) Decode(c *gin.Context) {
	var req dto.DecodeScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resp, err := h.schedules.Decode(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resp, nil)
}

// Export godoc
// @Summary Export sections or conflicts
// @Tags Horarios
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param kind query string false "sections or conflicts"
// @Param format query string false "csv, pdf or xlsx"
// @Param semester query int false "Semester filter for sections"
// @Success 200 {file} file
// @Router /horarios/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	result, err := h.exports.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.Filename, result.ContentType, result.Payload)
}
