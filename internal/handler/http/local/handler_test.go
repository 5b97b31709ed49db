package local

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/handler/http/local/mocks"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/shenikar/geo_attendance_system/internal/tracker"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestHandler(t *testing.T) (*mocks.MockTracker, *mocks.MockOutbox, *gin.Engine) {
	ctrl := gomock.NewController(t)
	trackerMock := mocks.NewMockTracker(ctrl)
	outboxMock := mocks.NewMockOutbox(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(trackerMock, outboxMock, logger).RegisterRoutes(router.Group("/api/v1"))

	return trackerMock, outboxMock, router
}

func makeRequest(router *gin.Engine, method, url string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSubmitSample(t *testing.T) {
	observedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	accuracy := 8.0

	tests := []struct {
		name           string
		body           string
		setupMock      func(tr *mocks.MockTracker)
		expectedStatus int
	}{
		{
			name: "Accepted",
			body: `{"latitude": 55.75, "longitude": 37.61, "accuracy": 8, "observed_at": "2026-03-02T12:00:00+03:00"}`,
			setupMock: func(tr *mocks.MockTracker) {
				tr.EXPECT().Submit(gomock.Any(), models.LocationSample{
					Coordinate: models.Coordinate{Latitude: 55.75, Longitude: 37.61, Accuracy: &accuracy},
					ObservedAt: observedAt,
				}).Return(nil)
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "Missing longitude",
			body:           `{"latitude": 55.75}`,
			setupMock:      func(tr *mocks.MockTracker) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Latitude out of range",
			body:           `{"latitude": 91, "longitude": 37.61}`,
			setupMock:      func(tr *mocks.MockTracker) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Negative accuracy",
			body:           `{"latitude": 55.75, "longitude": 37.61, "accuracy": -1}`,
			setupMock:      func(tr *mocks.MockTracker) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Malformed JSON",
			body:           `{"latitude":`,
			setupMock:      func(tr *mocks.MockTracker) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Tracking stopped",
			body: `{"latitude": 0, "longitude": 0}`,
			setupMock: func(tr *mocks.MockTracker) {
				tr.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(tracker.ErrTrackingStopped)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "Queue full until request deadline",
			body: `{"latitude": 55.75, "longitude": 37.61}`,
			setupMock: func(tr *mocks.MockTracker) {
				tr.EXPECT().Submit(gomock.Any(), gomock.Any()).Return(context.DeadlineExceeded)
			},
			expectedStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Подготовка
			trackerMock, _, router := newTestHandler(t)
			tt.setupMock(trackerMock)

			// Действие
			w := makeRequest(router, http.MethodPost, "/api/v1/samples", strings.NewReader(tt.body))

			// Проверки
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestCheckIn_WithLocation(t *testing.T) {
	// Подготовка
	trackerMock, _, router := newTestHandler(t)
	localID := uuid.New()
	observedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	// Ожидания
	trackerMock.EXPECT().
		CheckIn(gomock.Any(), &models.Coordinate{Latitude: 55.75, Longitude: 37.61}).
		DoAndReturn(func(_ context.Context, location *models.Coordinate) (models.AttendanceEvent, error) {
			return models.AttendanceEvent{
				LocalID:    localID,
				Type:       models.EventLogin,
				Location:   *location,
				ObservedAt: observedAt,
			}, nil
		})

	// Действие
	w := makeRequest(router, http.MethodPost, "/api/v1/attendance/check-in",
		strings.NewReader(`{"latitude": 55.75, "longitude": 37.61}`))

	// Проверки
	require.Equal(t, http.StatusCreated, w.Code)
	var resp EventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, localID, resp.LocalID)
	assert.Equal(t, models.EventLogin, resp.Type)
	assert.Equal(t, 55.75, resp.Latitude)
	assert.True(t, observedAt.Equal(resp.ObservedAt))
}

func TestCheckOut_EmptyBodyUsesLastLocation(t *testing.T) {
	trackerMock, _, router := newTestHandler(t)

	trackerMock.EXPECT().
		CheckOut(gomock.Any(), (*models.Coordinate)(nil)).
		Return(models.AttendanceEvent{LocalID: uuid.New(), Type: models.EventLogout}, nil)

	w := makeRequest(router, http.MethodPost, "/api/v1/attendance/check-out", nil)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestManualEvent_Errors(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(tr *mocks.MockTracker)
		expectedStatus int
	}{
		{
			name: "No known location",
			body: `{}`,
			setupMock: func(tr *mocks.MockTracker) {
				tr.EXPECT().CheckIn(gomock.Any(), nil).Return(models.AttendanceEvent{}, tracker.ErrNoLocation)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Latitude without longitude",
			body:           `{"latitude": 55.75}`,
			setupMock:      func(tr *mocks.MockTracker) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Longitude out of range",
			body:           `{"latitude": 55.75, "longitude": 181}`,
			setupMock:      func(tr *mocks.MockTracker) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Outbox failure",
			body: `{"latitude": 55.75, "longitude": 37.61}`,
			setupMock: func(tr *mocks.MockTracker) {
				tr.EXPECT().CheckIn(gomock.Any(), gomock.Any()).Return(models.AttendanceEvent{}, errors.New("database is locked"))
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trackerMock, _, router := newTestHandler(t)
			tt.setupMock(trackerMock)

			w := makeRequest(router, http.MethodPost, "/api/v1/attendance/check-in", strings.NewReader(tt.body))

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestTrackingControl(t *testing.T) {
	// Подготовка
	trackerMock, _, router := newTestHandler(t)

	// Ожидания: контекст трекинга не отменяется вместе с запросом
	gomock.InOrder(
		trackerMock.EXPECT().Start(gomock.Any()).Do(func(ctx context.Context) {
			assert.Nil(t, ctx.Done())
		}),
		trackerMock.EXPECT().Running().Return(true),
		trackerMock.EXPECT().Running().Return(true),
		trackerMock.EXPECT().Stop(),
		trackerMock.EXPECT().Running().Return(false),
	)

	// Действие и проверки
	w := makeRequest(router, http.MethodPost, "/api/v1/tracking/start", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"running": true}`, w.Body.String())

	w = makeRequest(router, http.MethodGet, "/api/v1/tracking", nil)
	assert.JSONEq(t, `{"running": true}`, w.Body.String())

	w = makeRequest(router, http.MethodPost, "/api/v1/tracking/stop", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"running": false}`, w.Body.String())
}

func TestOutboxStatus(t *testing.T) {
	t.Run("Pending count", func(t *testing.T) {
		_, outboxMock, router := newTestHandler(t)
		outboxMock.EXPECT().Pending(gomock.Any()).Return(3, nil)

		w := makeRequest(router, http.MethodGet, "/api/v1/outbox", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"pending": 3}`, w.Body.String())
	})

	t.Run("Storage error", func(t *testing.T) {
		_, outboxMock, router := newTestHandler(t)
		outboxMock.EXPECT().Pending(gomock.Any()).Return(0, errors.New("disk I/O error"))

		w := makeRequest(router, http.MethodGet, "/api/v1/outbox", nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestDeadLetters(t *testing.T) {
	t.Run("Preserves last error", func(t *testing.T) {
		_, outboxMock, router := newTestHandler(t)
		deadAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
		localID := uuid.NewString()
		outboxMock.EXPECT().DeadLetters(gomock.Any()).Return([]models.DeadLetter{{
			LocalID:      localID,
			Payload:      `{}`,
			AttemptCount: 1,
			LastError:    "outside_zone: point is 500m from zone center",
			DeadAt:       deadAt,
		}}, nil)

		w := makeRequest(router, http.MethodGet, "/api/v1/outbox/dead-letters", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var letters []models.DeadLetter
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &letters))
		require.Len(t, letters, 1)
		assert.Equal(t, localID, letters[0].LocalID)
		assert.Contains(t, letters[0].LastError, "outside_zone")
	})

	t.Run("Empty list", func(t *testing.T) {
		_, outboxMock, router := newTestHandler(t)
		outboxMock.EXPECT().DeadLetters(gomock.Any()).Return(nil, nil)

		w := makeRequest(router, http.MethodGet, "/api/v1/outbox/dead-letters", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
}

func TestHealthCheck(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, http.MethodGet, "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"status": %q}`, "ok"), w.Body.String())
}
