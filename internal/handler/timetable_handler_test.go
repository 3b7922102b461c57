package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/jobs"
)

type timetableRunnerMock struct {
	captured  dto.RegenerateRequest
	summary   *dto.TimetableSummary
	job       *dto.RegenerateJobResponse
	err       error
	runsQuery dto.RunsQuery
}

func (m *timetableRunnerMock) Regenerate(ctx context.Context, req dto.RegenerateRequest) (*dto.TimetableSummary, *dto.RegenerateJobResponse, error) {
	m.captured = req
	return m.summary, m.job, m.err
}

func (m *timetableRunnerMock) Summary() (*dto.TimetableSummary, error) {
	if m.summary == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable has been generated")
	}
	return m.summary, nil
}

func (m *timetableRunnerMock) Conflicts() ([]models.Conflict, error) {
	return []models.Conflict{{CourseCode: "CS101L", Reason: models.ConflictNoInstructor}}, nil
}

func (m *timetableRunnerMock) Job(id string) (*jobs.State, error) {
	if id != "job-1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
	}
	return &jobs.State{ID: id, Status: jobs.StatusSucceeded}, nil
}

func (m *timetableRunnerMock) Runs(ctx context.Context, query dto.RunsQuery) ([]models.TimetableRun, error) {
	m.runsQuery = query
	return []models.TimetableRun{{ID: "run-1", Status: models.TimetableRunPublished}}, nil
}

type timetableViewerMock struct{}

func (timetableViewerMock) Levels(ctx context.Context) ([]dto.LevelView, error) {
	return []dto.LevelView{{Level: 1}}, nil
}

func (timetableViewerMock) Section(ctx context.Context, sectionID string) (*dto.SectionView, error) {
	if sectionID != "G1-S1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
	}
	return &dto.SectionView{SectionID: sectionID, GroupID: "G1"}, nil
}

func (timetableViewerMock) Professors(ctx context.Context) ([]dto.ResourceView, error) {
	return []dto.ResourceView{{ID: "P1", Kind: "professor"}}, nil
}

func (timetableViewerMock) LabInstructors(ctx context.Context) ([]dto.ResourceView, error) {
	return []dto.ResourceView{{ID: "I1", Kind: "lab_instructor", Hours: 3}}, nil
}

func (timetableViewerMock) Rooms(ctx context.Context) ([]dto.ResourceView, error) {
	return []dto.ResourceView{{ID: "R1", Kind: "lecture"}}, nil
}

type timetableExporterMock struct {
	query dto.ExportQuery
}

func (m *timetableExporterMock) Export(ctx context.Context, query dto.ExportQuery) (*service.ExportFile, error) {
	m.query = query
	if query.Format != "" && query.Format != "csv" {
		return nil, appErrors.ErrUnsupportedFormat
	}
	return &service.ExportFile{Filename: "timetable_run1.csv", ContentType: "text/csv", Body: []byte("ID\n")}, nil
}

func (m *timetableExporterMock) SectionCalendar(ctx context.Context, sectionID string) (*service.ExportFile, error) {
	return &service.ExportFile{Filename: sectionID + ".ics", ContentType: "text/calendar", Body: []byte("BEGIN:VCALENDAR")}, nil
}

func newTimetableRouter(runner *timetableRunnerMock, exporter *timetableExporterMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &TimetableHandler{timetables: runner, views: timetableViewerMock{}, exports: exporter}
	router := gin.New()
	h.Register(router.Group("/api/v1"))
	return router
}

func perform(router *gin.Engine, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestTimetableHandlerRegenerateSync(t *testing.T) {
	runner := &timetableRunnerMock{summary: &dto.TimetableSummary{RunID: "run-1", Seed: 7}}
	router := newTimetableRouter(runner, &timetableExporterMock{})

	w := perform(router, http.MethodPost, "/api/v1/timetable/regenerate", []byte(`{"seed":7}`))

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, runner.captured.Seed)
	assert.Equal(t, int64(7), *runner.captured.Seed)
	assert.Contains(t, w.Body.String(), `"runId":"run-1"`)
}

func TestTimetableHandlerRegenerateEmptyBody(t *testing.T) {
	runner := &timetableRunnerMock{summary: &dto.TimetableSummary{RunID: "run-1"}}
	router := newTimetableRouter(runner, &timetableExporterMock{})

	w := perform(router, http.MethodPost, "/api/v1/timetable/regenerate", nil)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, runner.captured.Seed)
}

func TestTimetableHandlerRegenerateAsync(t *testing.T) {
	runner := &timetableRunnerMock{job: &dto.RegenerateJobResponse{JobID: "job-1", Status: "QUEUED"}}
	router := newTimetableRouter(runner, &timetableExporterMock{})

	w := perform(router, http.MethodPost, "/api/v1/timetable/regenerate", []byte(`{"async":true}`))

	require.Equal(t, http.StatusAccepted, w.Code)
	assert.True(t, runner.captured.Async)
	assert.Contains(t, w.Body.String(), `"jobId":"job-1"`)
}

func TestTimetableHandlerRegenerateMalformed(t *testing.T) {
	router := newTimetableRouter(&timetableRunnerMock{}, &timetableExporterMock{})

	w := perform(router, http.MethodPost, "/api/v1/timetable/regenerate", []byte(`{"seed":`))

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerRegenerateBusy(t *testing.T) {
	runner := &timetableRunnerMock{err: appErrors.Clone(appErrors.ErrConflict, "a timetable generation is already running")}
	router := newTimetableRouter(runner, &timetableExporterMock{})

	w := perform(router, http.MethodPost, "/api/v1/timetable/regenerate", []byte(`{}`))

	require.Equal(t, http.StatusConflict, w.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "CONFLICT", envelope.Error.Code)
}

func TestTimetableHandlerSummaryNotGenerated(t *testing.T) {
	router := newTimetableRouter(&timetableRunnerMock{}, &timetableExporterMock{})

	w := perform(router, http.MethodGet, "/api/v1/timetable", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerConflictsIncludesTotal(t *testing.T) {
	router := newTimetableRouter(&timetableRunnerMock{}, &timetableExporterMock{})

	w := perform(router, http.MethodGet, "/api/v1/timetable/conflicts", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestTimetableHandlerJob(t *testing.T) {
	router := newTimetableRouter(&timetableRunnerMock{}, &timetableExporterMock{})

	w := perform(router, http.MethodGet, "/api/v1/timetable/jobs/job-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"SUCCEEDED"`)

	w = perform(router, http.MethodGet, "/api/v1/timetable/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerRunsBindsLimit(t *testing.T) {
	runner := &timetableRunnerMock{}
	router := newTimetableRouter(runner, &timetableExporterMock{})

	w := perform(router, http.MethodGet, "/api/v1/timetable/runs?limit=5", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, runner.runsQuery.Limit)

	w = perform(router, http.MethodGet, "/api/v1/timetable/runs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerViews(t *testing.T) {
	router := newTimetableRouter(&timetableRunnerMock{}, &timetableExporterMock{})

	cases := map[string]string{
		"/api/v1/timetable/levels":          `"level":1`,
		"/api/v1/timetable/professors":      `"id":"P1"`,
		"/api/v1/timetable/lab-instructors": `"id":"I1"`,
		"/api/v1/timetable/rooms":           `"id":"R1"`,
		"/api/v1/timetable/sections/G1-S1":  `"sectionId":"G1-S1"`,
	}
	for path, fragment := range cases {
		w := perform(router, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), fragment, path)
	}

	w := perform(router, http.MethodGet, "/api/v1/timetable/sections/G9-S1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTimetableHandlerExport(t *testing.T) {
	exporter := &timetableExporterMock{}
	router := newTimetableRouter(&timetableRunnerMock{}, exporter)

	w := perform(router, http.MethodGet, "/api/v1/timetable/export?format=csv", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", exporter.query.Format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "timetable_run1.csv")
}

func TestTimetableHandlerExportRejectsUnknownFormat(t *testing.T) {
	router := newTimetableRouter(&timetableRunnerMock{}, &timetableExporterMock{})

	w := perform(router, http.MethodGet, "/api/v1/timetable/export?format=docx", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerSectionCalendar(t *testing.T) {
	router := newTimetableRouter(&timetableRunnerMock{}, &timetableExporterMock{})

	w := perform(router, http.MethodGet, "/api/v1/timetable/sections/G1-S1/ics", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "G1-S1.ics")
	assert.Equal(t, "BEGIN:VCALENDAR", w.Body.String())
}
