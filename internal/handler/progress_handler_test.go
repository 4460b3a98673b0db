package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-progress-api/internal/models"
	"github.com/noah-isme/sma-progress-api/internal/service"
	appErrors "github.com/noah-isme/sma-progress-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

type fakeProgressSrv struct {
	timeline   *models.SessionTimeline
	err        error
	lastArgs   [3]string
	lastWindow models.WindowMode
}

func (f *fakeProgressSrv) ResolveSessions(_ context.Context, classID, studentID, courseID string) (*models.SessionTimeline, error) {
	f.lastArgs = [3]string{classID, studentID, courseID}
	return f.timeline, f.err
}

func (f *fakeProgressSrv) ComputeMetrics(sessions []models.Session, window models.WindowMode) models.ProgressMetrics {
	f.lastWindow = window
	return models.ProgressMetrics{Window: window, TotalCount: len(sessions), CompletionRate: 50}
}

func (f *fakeProgressSrv) DefaultWindow(kind models.WindowKind) models.WindowMode {
	if kind == models.WindowKindWeeks {
		return models.LastNWeeks(4)
	}
	return models.LastNSessions(8)
}

type fakeExporter struct {
	enabled bool
	format  service.ExportFormat
}

func (f *fakeExporter) Enabled() bool { return f.enabled }

func (f *fakeExporter) Render(_ *models.SessionTimeline, format service.ExportFormat) (*service.ExportResult, error) {
	f.format = format
	return &service.ExportResult{Filename: "sessions.csv", ContentType: "text/csv; charset=utf-8", Payload: []byte("Session\n1\n")}, nil
}

func sampleTimeline() *models.SessionTimeline {
	day := time.Date(2024, 3, 4, 8, 0, 0, 0, time.UTC)
	return &models.SessionTimeline{
		ClassID:   "class-1",
		StudentID: "student-1",
		CourseID:  "course-1",
		Sessions: []models.Session{
			{SessionNumber: 1, Meeting: models.Meeting{ID: "m1", Date: day}},
			{SessionNumber: 2, Meeting: models.Meeting{ID: "m2", Date: day.AddDate(0, 0, 7)}},
		},
		CurrentIndex: 1,
	}
}

func newEnrollmentContext(rec *httptest.ResponseRecorder, target string) *gin.Context {
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	c.Params = gin.Params{{Key: "classId", Value: "class-1"}, {Key: "studentId", Value: "student-1"}}
	return c
}

func TestProgressHandlerSessionsRequiresCourse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeProgressSrv{timeline: sampleTimeline()}
	handler := NewProgressHandler(srv, nil, nil)

	rec := httptest.NewRecorder()
	handler.Sessions(newEnrollmentContext(rec, "/sessions"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, srv.lastArgs[0])
}

func TestProgressHandlerSessionsRejectsUnknownWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProgressHandler(&fakeProgressSrv{timeline: sampleTimeline()}, nil, nil)

	rec := httptest.NewRecorder()
	handler.Sessions(newEnrollmentContext(rec, "/sessions?courseId=course-1&window=days"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProgressHandlerSessionsSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeProgressSrv{timeline: sampleTimeline()}
	handler := NewProgressHandler(srv, nil, nil)

	rec := httptest.NewRecorder()
	handler.Sessions(newEnrollmentContext(rec, "/sessions?courseId=course-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [3]string{"class-1", "student-1", "course-1"}, srv.lastArgs)
	assert.Equal(t, models.LastNSessions(8), srv.lastWindow)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, float64(1), envelope.Data["currentIndex"])
	current, ok := envelope.Data["currentSession"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), current["sessionNumber"])
	assert.Len(t, envelope.Data["sessions"], 2)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestProgressHandlerProgressWeeksWindow(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeProgressSrv{timeline: sampleTimeline()}
	handler := NewProgressHandler(srv, nil, nil)

	rec := httptest.NewRecorder()
	handler.Progress(newEnrollmentContext(rec, "/progress?courseId=course-1&window=weeks&size=6"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.LastNWeeks(6), srv.lastWindow)

	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	metrics := envelope.Data["metrics"].(map[string]interface{})
	assert.Equal(t, float64(50), metrics["completionRate"])
}

func TestProgressHandlerSessionsUpstreamFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProgressHandler(&fakeProgressSrv{err: appErrors.ErrSessionsUnavailable}, nil, nil)

	rec := httptest.NewRecorder()
	handler.Sessions(newEnrollmentContext(rec, "/sessions?courseId=course-1"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "failed to load sessions", envelope.Error["message"])
}

func TestProgressHandlerExport(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &fakeExporter{enabled: true}
	handler := NewProgressHandler(&fakeProgressSrv{timeline: sampleTimeline()}, exporter, nil)

	rec := httptest.NewRecorder()
	handler.Export(newEnrollmentContext(rec, "/sessions/export?courseId=course-1"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportFormatCSV, exporter.format)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "sessions.csv")
	assert.Equal(t, "Session\n1\n", rec.Body.String())
}

func TestProgressHandlerExportDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProgressHandler(&fakeProgressSrv{timeline: sampleTimeline()}, &fakeExporter{}, nil)

	rec := httptest.NewRecorder()
	handler.Export(newEnrollmentContext(rec, "/sessions/export?courseId=course-1&format=pdf"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProgressHandlerExportRejectsFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewProgressHandler(&fakeProgressSrv{timeline: sampleTimeline()}, &fakeExporter{enabled: true}, nil)

	rec := httptest.NewRecorder()
	handler.Export(newEnrollmentContext(rec, "/sessions/export?courseId=course-1&format=xlsx"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
