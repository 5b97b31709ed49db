package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shenikar/geo_attendance_system/internal/config"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/shenikar/geo_attendance_system/internal/service"
	"github.com/shenikar/geo_attendance_system/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	testAPIKey    = "test-api-key"
	testJWTSecret = "test-jwt-secret"
)

var adminHeaders = map[string]string{"X-API-Key": testAPIKey}

// newTestHandler создает новый экземпляр Handler с мокированными сервисами
func newTestHandler(t *testing.T) (*Handler, *mocks.MockZoneService, *mocks.MockAttendanceService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	zoneMock := mocks.NewMockZoneService(ctrl)
	attendanceMock := mocks.NewMockAttendanceService(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		APIKeys:                []string{testAPIKey},
		JWTSecret:              testJWTSecret,
		StatsTimeWindowMinutes: 60,
	}

	handler := NewHandler(zoneMock, attendanceMock, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return handler, zoneMock, attendanceMock, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func agentHeaders(t *testing.T, userID string) map[string]string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AgentClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + signed}
}

func ptr(v float64) *float64 {
	return &v
}

func validZoneRequest() CreateZoneRequest {
	return CreateZoneRequest{
		Name:         "Главный офис",
		Latitude:     ptr(55.7558),
		Longitude:    ptr(37.6173),
		RadiusMeters: 150,
		WorkingHours: &WorkingHoursDTO{Start: "09:00", End: "18:00"},
		WorkingDays:  []int{1, 2, 3, 4, 5},
		Timezone:     "Europe/Moscow",
	}
}

func TestCreateZone_Success(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)
	zoneID := uuid.New()
	reqBody := validZoneRequest()

	zoneMock.EXPECT().
		CreateZone(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, z *models.Zone) error {
			assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}, z.WorkingDays)
			z.ID = zoneID // Симулируем присвоенный БД ID
			z.Status = models.ZoneStatusActive
			return nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/zones", bytes.NewBuffer(bodyBytes), adminHeaders)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp ZoneResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, zoneID, resp.ID)
	assert.Equal(t, reqBody.Name, resp.Name)
	assert.Equal(t, "09:00", resp.WorkingHours.Start)
}

func TestCreateZone_ZeroCoordinatesAllowed(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)
	reqBody := validZoneRequest()
	reqBody.Latitude = ptr(0)
	reqBody.Longitude = ptr(0)

	zoneMock.EXPECT().CreateZone(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/zones", bytes.NewBuffer(bodyBytes), adminHeaders)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateZone_InvalidJSON(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)

	zoneMock.EXPECT().CreateZone(gomock.Any(), gomock.Any()).Times(0) // Сервис не должен вызываться

	w := makeRequest(router, "POST", "/api/v1/zones", bytes.NewBufferString(`{"name": "test"`), adminHeaders)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestCreateZone_ValidationError(t *testing.T) {
	cases := map[string]struct {
		mutate func(r *CreateZoneRequest)
		field  string
	}{
		"нет имени":                {func(r *CreateZoneRequest) { r.Name = "" }, "Name"},
		"радиус больше предела":    {func(r *CreateZoneRequest) { r.RadiusMeters = 10001 }, "RadiusMeters"},
		"нулевой радиус":           {func(r *CreateZoneRequest) { r.RadiusMeters = 0 }, "RadiusMeters"},
		"широта вне диапазона":     {func(r *CreateZoneRequest) { r.Latitude = ptr(91) }, "Latitude"},
		"нет долготы":              {func(r *CreateZoneRequest) { r.Longitude = nil }, "Longitude"},
		"неверное время":           {func(r *CreateZoneRequest) { r.WorkingHours.End = "25:00" }, "End"},
		"неверный день":            {func(r *CreateZoneRequest) { r.WorkingDays = []int{7} }, "WorkingDays[0]"},
		"неизвестный часовой пояс": {func(r *CreateZoneRequest) { r.Timezone = "Mars/Olympus" }, "Timezone"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, zoneMock, _, router := newTestHandler(t)
			reqBody := validZoneRequest()
			tc.mutate(&reqBody)

			zoneMock.EXPECT().CreateZone(gomock.Any(), gomock.Any()).Times(0)

			bodyBytes, _ := json.Marshal(reqBody)
			w := makeRequest(router, "POST", "/api/v1/zones", bytes.NewBuffer(bodyBytes), adminHeaders)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), fmt.Sprintf("'%s'", tc.field))
		})
	}
}

func TestCreateZone_ServiceError(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)

	zoneMock.EXPECT().CreateZone(gomock.Any(), gomock.Any()).Return(errors.New("service error")).Times(1)

	bodyBytes, _ := json.Marshal(validZoneRequest())
	w := makeRequest(router, "POST", "/api/v1/zones", bytes.NewBuffer(bodyBytes), adminHeaders)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestCreateZone_RequiresAPIKey(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)

	zoneMock.EXPECT().CreateZone(gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(validZoneRequest())
	w := makeRequest(router, "POST", "/api/v1/zones", bytes.NewBuffer(bodyBytes), agentHeaders(t, "u1"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetZone_Success(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)
	zoneID := uuid.New()

	zoneMock.EXPECT().GetZone(gomock.Any(), zoneID).Return(&models.Zone{ID: zoneID, Name: "Склад"}, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/zones/"+zoneID.String(), nil, adminHeaders)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp ZoneResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Склад", resp.Name)
	assert.Equal(t, []string{}, resp.AllowedMembers)
}

func TestGetZone_InvalidID(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)

	zoneMock.EXPECT().GetZone(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/zones/not-a-uuid", nil, adminHeaders)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid zone ID")
}

func TestGetZone_NotFound(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)
	zoneID := uuid.New()

	zoneMock.EXPECT().GetZone(gomock.Any(), zoneID).Return(nil, fmt.Errorf("service: %w", models.ErrNotFound)).Times(1)

	w := makeRequest(router, "GET", "/api/v1/zones/"+zoneID.String(), nil, adminHeaders)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "zone not found")
}

func TestGetZone_ServiceError(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)
	zoneID := uuid.New()

	zoneMock.EXPECT().GetZone(gomock.Any(), zoneID).Return(nil, errors.New("db down")).Times(1)

	w := makeRequest(router, "GET", "/api/v1/zones/"+zoneID.String(), nil, adminHeaders)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListZones_Success(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)
	zones := []*models.Zone{{ID: uuid.New(), Name: "A"}, {ID: uuid.New(), Name: "B"}}

	zoneMock.EXPECT().ListZones(gomock.Any(), 2, 5).Return(zones, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/zones?page=2&pageSize=5", nil, adminHeaders)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []ZoneResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestListZones_ServiceError(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)

	zoneMock.EXPECT().ListZones(gomock.Any(), 1, 20).Return(nil, errors.New("db down")).Times(1)

	w := makeRequest(router, "GET", "/api/v1/zones", nil, adminHeaders)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListActiveZones_WithAgentToken(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)
	zones := []*models.Zone{{ID: uuid.New(), Name: "A", Status: models.ZoneStatusActive, RadiusMeters: 50}}

	zoneMock.EXPECT().ListActiveZones(gomock.Any()).Return(zones, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/zones/active", nil, agentHeaders(t, "u1"))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []ZoneResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, zones[0].ID, resp[0].ID)
}

func TestListActiveZones_RequiresToken(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)

	zoneMock.EXPECT().ListActiveZones(gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/zones/active", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateZone_Success(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)
	zoneID := uuid.New()
	reqBody := UpdateZoneRequest{CreateZoneRequest: validZoneRequest(), Status: models.ZoneStatusInactive}

	zoneMock.EXPECT().
		UpdateZone(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, z *models.Zone) error {
			assert.Equal(t, zoneID, z.ID)
			assert.Equal(t, models.ZoneStatusInactive, z.Status)
			return nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "PUT", "/api/v1/zones/"+zoneID.String(), bytes.NewBuffer(bodyBytes), adminHeaders)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateZone_InvalidStatus(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)
	reqBody := UpdateZoneRequest{CreateZoneRequest: validZoneRequest(), Status: "archived"}

	zoneMock.EXPECT().UpdateZone(gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "PUT", "/api/v1/zones/"+uuid.NewString(), bytes.NewBuffer(bodyBytes), adminHeaders)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "'Status'")
}

func TestUpdateZone_NotFound(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)
	reqBody := UpdateZoneRequest{CreateZoneRequest: validZoneRequest(), Status: models.ZoneStatusActive}

	zoneMock.EXPECT().UpdateZone(gomock.Any(), gomock.Any()).Return(fmt.Errorf("service: %w", models.ErrNotFound)).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "PUT", "/api/v1/zones/"+uuid.NewString(), bytes.NewBuffer(bodyBytes), adminHeaders)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteZone_Success(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)
	zoneID := uuid.New()

	zoneMock.EXPECT().DeactivateZone(gomock.Any(), zoneID).Return(nil).Times(1)

	w := makeRequest(router, "DELETE", "/api/v1/zones/"+zoneID.String(), nil, adminHeaders)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDeleteZone_InvalidID(t *testing.T) {
	_, zoneMock, _, router := newTestHandler(t)

	zoneMock.EXPECT().DeactivateZone(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "DELETE", "/api/v1/zones/123", nil, adminHeaders)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func validEventRequest() AttendanceEventRequest {
	return AttendanceEventRequest{
		LocalID:    uuid.NewString(),
		Type:       models.EventGeofenceEnter,
		Latitude:   ptr(55.7558),
		Longitude:  ptr(37.6173),
		Accuracy:   ptr(12),
		ZoneID:     uuid.NewString(),
		ObservedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
}

func TestSubmitEvent_Created(t *testing.T) {
	_, _, attendanceMock, router := newTestHandler(t)
	reqBody := validEventRequest()

	attendanceMock.EXPECT().
		SubmitEvent(gomock.Any(), "u1", gomock.Any()).
		DoAndReturn(func(_ context.Context, userID string, e *models.AttendanceEvent) (*models.AttendanceRecord, bool, error) {
			assert.Equal(t, reqBody.LocalID, e.LocalID.String())
			require.NotNil(t, e.ZoneID)
			assert.Equal(t, reqBody.ZoneID, e.ZoneID.String())
			assert.Equal(t, 12.0, *e.Location.Accuracy)
			return &models.AttendanceRecord{ID: 1, LocalID: e.LocalID, UserID: userID, Type: e.Type, ZoneID: e.ZoneID}, true, nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/attendance/events", bytes.NewBuffer(bodyBytes), agentHeaders(t, "u1"))

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp AttendanceRecordResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp.UserID)
	assert.False(t, resp.Duplicate)
}

func TestSubmitEvent_Duplicate(t *testing.T) {
	_, _, attendanceMock, router := newTestHandler(t)
	reqBody := validEventRequest()

	attendanceMock.EXPECT().
		SubmitEvent(gomock.Any(), "u1", gomock.Any()).
		Return(&models.AttendanceRecord{ID: 9, LocalID: uuid.MustParse(reqBody.LocalID)}, false, nil).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/attendance/events", bytes.NewBuffer(bodyBytes), agentHeaders(t, "u1"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"duplicate":true`)
}

func TestSubmitEvent_PolicyRejection(t *testing.T) {
	_, _, attendanceMock, router := newTestHandler(t)

	attendanceMock.EXPECT().
		SubmitEvent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, false, &service.PolicyError{Code: service.CodeOutsideZone, Err: service.ErrOutsideZone}).
		Times(1)

	bodyBytes, _ := json.Marshal(validEventRequest())
	w := makeRequest(router, "POST", "/api/v1/attendance/events", bytes.NewBuffer(bodyBytes), agentHeaders(t, "u1"))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, service.CodeOutsideZone, resp.Code)
}

func TestSubmitEvent_LocalIDConflict(t *testing.T) {
	_, _, attendanceMock, router := newTestHandler(t)

	attendanceMock.EXPECT().
		SubmitEvent(gomock.Any(), "u2", gomock.Any()).
		Return(nil, false, fmt.Errorf("%w: reused", service.ErrLocalIDConflict)).
		Times(1)

	bodyBytes, _ := json.Marshal(validEventRequest())
	w := makeRequest(router, "POST", "/api/v1/attendance/events", bytes.NewBuffer(bodyBytes), agentHeaders(t, "u2"))

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, service.CodeLocalIDConflict, resp.Code)
}

func TestSubmitEvent_InvalidEvent(t *testing.T) {
	_, _, attendanceMock, router := newTestHandler(t)
	reqBody := validEventRequest()
	reqBody.Type = models.EventLogin

	attendanceMock.EXPECT().
		SubmitEvent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, false, fmt.Errorf("%w: login must not carry zone_id", models.ErrInvalidEvent)).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/attendance/events", bytes.NewBuffer(bodyBytes), agentHeaders(t, "u1"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitEvent_ValidationError(t *testing.T) {
	_, _, attendanceMock, router := newTestHandler(t)
	reqBody := validEventRequest()
	reqBody.Type = "teleport"

	attendanceMock.EXPECT().SubmitEvent(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/attendance/events", bytes.NewBuffer(bodyBytes), agentHeaders(t, "u1"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "'Type'")
}

func TestSubmitEvent_ServiceError(t *testing.T) {
	_, _, attendanceMock, router := newTestHandler(t)

	attendanceMock.EXPECT().
		SubmitEvent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, false, errors.New("db down")).
		Times(1)

	bodyBytes, _ := json.Marshal(validEventRequest())
	w := makeRequest(router, "POST", "/api/v1/attendance/events", bytes.NewBuffer(bodyBytes), agentHeaders(t, "u1"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetStats_Success(t *testing.T) {
	_, _, attendanceMock, router := newTestHandler(t)

	attendanceMock.EXPECT().GetStats(gomock.Any()).Return(5, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/attendance/stats", nil, adminHeaders)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.UserCount)
	assert.Equal(t, 60, resp.WindowMinutes)
}

func TestGetStats_ServiceError(t *testing.T) {
	_, _, attendanceMock, router := newTestHandler(t)

	attendanceMock.EXPECT().GetStats(gomock.Any()).Return(0, errors.New("db down")).Times(1)

	w := makeRequest(router, "GET", "/api/v1/attendance/stats", nil, adminHeaders)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthCheck_Success(t *testing.T) {
	_, _, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func newMiddlewareRouter(middleware func(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})

	cfg := &config.Config{
		APIKeys:   []string{"valid-key"},
		JWTSecret: testJWTSecret,
	}

	router.Use(middleware(cfg, logger))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(userIDKey))
	})
	return router
}

func TestAPIKeyAuthMiddleware_Success(t *testing.T) {
	router := newMiddlewareRouter(APIKeyAuthMiddleware)

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-API-Key": "valid-key"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = makeRequest(router, "GET", "/test", nil, map[string]string{"Authorization": "Bearer valid-key"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuthMiddleware_MissingKey(t *testing.T) {
	router := newMiddlewareRouter(APIKeyAuthMiddleware)

	w := makeRequest(router, "GET", "/test", nil) // Нет API ключа
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "API key required")
}

func TestAPIKeyAuthMiddleware_InvalidKey(t *testing.T) {
	router := newMiddlewareRouter(APIKeyAuthMiddleware)

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"X-API-Key": "invalid-key"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}

func TestUserAuthMiddleware_SetsUserID(t *testing.T) {
	router := newMiddlewareRouter(UserAuthMiddleware)

	w := makeRequest(router, "GET", "/test", nil, agentHeaders(t, "employee-42"))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "employee-42", w.Body.String())
}

func TestUserAuthMiddleware_SubjectFallback(t *testing.T) {
	router := newMiddlewareRouter(UserAuthMiddleware)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "employee-7"})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	w := makeRequest(router, "GET", "/test", nil, map[string]string{"Authorization": "Bearer " + signed})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "employee-7", w.Body.String())
}

func TestUserAuthMiddleware_Rejects(t *testing.T) {
	wrongSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AgentClaims{UserID: "u1"}).SignedString([]byte("other"))
	require.NoError(t, err)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AgentClaims{
		UserID:           "u1",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour))},
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	noIdentity, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AgentClaims{}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	cases := map[string]map[string]string{
		"нет токена":         {},
		"чужой секрет":       {"Authorization": "Bearer " + wrongSecret},
		"истекший токен":     {"Authorization": "Bearer " + expired},
		"нет идентификатора": {"Authorization": "Bearer " + noIdentity},
		"мусор":              {"Authorization": "Bearer not.a.jwt"},
	}
	for name, headers := range cases {
		t.Run(name, func(t *testing.T) {
			router := newMiddlewareRouter(UserAuthMiddleware)

			w := makeRequest(router, "GET", "/test", nil, headers)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
