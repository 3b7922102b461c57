package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableRunner interface {
	Regenerate(ctx context.Context, req dto.RegenerateRequest) (*dto.TimetableSummary, *dto.RegenerateJobResponse, error)
	Summary() (*dto.TimetableSummary, error)
	Conflicts() ([]models.Conflict, error)
	Job(id string) (*jobs.State, error)
	Runs(ctx context.Context, query dto.RunsQuery) ([]models.TimetableRun, error)
}

type timetableViewer interface {
	Levels(ctx context.Context) ([]dto.LevelView, error)
	Section(ctx context.Context, sectionID string) (*dto.SectionView, error)
	Professors(ctx context.Context) ([]dto.ResourceView, error)
	LabInstructors(ctx context.Context) ([]dto.ResourceView, error)
	Rooms(ctx context.Context) ([]dto.ResourceView, error)
}

type timetableExporter interface {
	Export(ctx context.Context, query dto.ExportQuery) (*service.ExportFile, error)
	SectionCalendar(ctx context.Context, sectionID string) (*service.ExportFile, error)
}

// TimetableHandler exposes generation, views and exports of the published timetable.
type TimetableHandler struct {
	timetables timetableRunner
	views      timetableViewer
	exports    timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(timetables *service.TimetableService, views *service.ViewService, exports *service.ExportService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, views: views, exports: exports}
}

// Register mounts the timetable routes on the group.
func (h *TimetableHandler) Register(group *gin.RouterGroup, regenerateMiddleware ...gin.HandlerFunc) {
	tt := group.Group("/timetable")
	tt.POST("/regenerate", append(regenerateMiddleware, h.Regenerate)...)
	tt.GET("", h.Summary)
	tt.GET("/conflicts", h.Conflicts)
	tt.GET("/jobs/:id", h.Job)
	tt.GET("/runs", h.Runs)
	tt.GET("/levels", h.Levels)
	tt.GET("/professors", h.Professors)
	tt.GET("/lab-instructors", h.LabInstructors)
	tt.GET("/rooms", h.Rooms)
	tt.GET("/sections/:id", h.Section)
	tt.GET("/sections/:id/ics", h.SectionCalendar)
	tt.GET("/export", h.Export)
}

// Regenerate godoc
// @Summary Regenerate the timetable
// @Description Runs the scheduler against the current catalog. With async=true the run is queued and a job id is returned.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.RegenerateRequest false "Regenerate payload"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /timetable/regenerate [post]
func (h *TimetableHandler) Regenerate(c *gin.Context) {
	var req dto.RegenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid regenerate payload"))
		return
	}
	summary, job, err := h.timetables.Regenerate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if job != nil {
		response.Accepted(c, job)
		return
	}
	response.Created(c, summary)
}

// Summary godoc
// @Summary Published timetable summary
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetable [get]
func (h *TimetableHandler) Summary(c *gin.Context) {
	summary, err := h.timetables.Summary()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary)
}

// Conflicts godoc
// @Summary Unplaced sessions of the published timetable
// @Tags Timetable
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/conflicts [get]
func (h *TimetableHandler) Conflicts(c *gin.Context) {
	conflicts, err := h.timetables.Conflicts()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, map[string]interface{}{"total": len(conflicts)})
}

// Job godoc
// @Summary Status of a queued regeneration
// @Tags Timetable
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/jobs/{id} [get]
func (h *TimetableHandler) Job(c *gin.Context) {
	state, err := h.timetables.Job(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state)
}

// Runs godoc
// @Summary Persisted generation runs, newest first
// @Tags Timetable
// @Produce json
// @Param limit query int false "Maximum runs (1-100)"
// @Success 200 {object} response.Envelope
// @Router /timetable/runs [get]
func (h *TimetableHandler) Runs(c *gin.Context) {
	var query dto.RunsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid runs query"))
		return
	}
	runs, err := h.timetables.Runs(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs)
}

// Levels godoc
// @Summary Timetable grouped by level and section
// @Tags Views
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/levels [get]
func (h *TimetableHandler) Levels(c *gin.Context) {
	views, err := h.views.Levels(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views)
}

// Section godoc
// @Summary Weekly timetable of one section
// @Tags Views
// @Produce json
// @Param id path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /timetable/sections/{id} [get]
func (h *TimetableHandler) Section(c *gin.Context) {
	view, err := h.views.Section(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Professors godoc
// @Summary Lectures per professor
// @Tags Views
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/professors [get]
func (h *TimetableHandler) Professors(c *gin.Context) {
	h.resources(c, h.views.Professors)
}

// LabInstructors godoc
// @Summary Lab sessions and weekly hours per lab instructor
// @Tags Views
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/lab-instructors [get]
func (h *TimetableHandler) LabInstructors(c *gin.Context) {
	h.resources(c, h.views.LabInstructors)
}

// Rooms godoc
// @Summary Occupancy per room
// @Tags Views
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetable/rooms [get]
func (h *TimetableHandler) Rooms(c *gin.Context) {
	h.resources(c, h.views.Rooms)
}

func (h *TimetableHandler) resources(c *gin.Context, load func(context.Context) ([]dto.ResourceView, error)) {
	views, err := load(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views)
}

// Export godoc
// @Summary Download the published timetable
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "csv, pdf or xlsx (default csv)"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.exports.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// SectionCalendar godoc
// @Summary Download a section's week as iCalendar
// @Tags Exports
// @Produce text/calendar
// @Param id path string true "Section ID"
// @Success 200 {file} file
// @Router /timetable/sections/{id}/ics [get]
func (h *TimetableHandler) SectionCalendar(c *gin.Context) {
	file, err := h.exports.SectionCalendar(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
