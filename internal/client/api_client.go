package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shenikar/geo_attendance_system/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	activeZonesPath = "/api/v1/zones/active"
	eventsPath      = "/api/v1/attendance/events"
)

// APIClient ходит на сервер учета от имени агента
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewAPIClient создает клиент; timeout ограничивает каждый запрос целиком
func NewAPIClient(baseURL, token string, timeout time.Duration, logger *logrus.Logger) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// eventPayload - тело POST /api/v1/attendance/events
type eventPayload struct {
	LocalID          string           `json:"local_id"`
	Type             models.EventType `json:"type"`
	Latitude         float64          `json:"latitude"`
	Longitude        float64          `json:"longitude"`
	Accuracy         *float64         `json:"accuracy,omitempty"`
	Altitude         *float64         `json:"altitude,omitempty"`
	Heading          *float64         `json:"heading,omitempty"`
	Speed            *float64         `json:"speed,omitempty"`
	ZoneID           string           `json:"zone_id,omitempty"`
	ObservedAt       time.Time        `json:"observed_at"`
	DeliveryAttempts int              `json:"delivery_attempts,omitempty"`
}

func newEventPayload(event models.AttendanceEvent) eventPayload {
	payload := eventPayload{
		LocalID:          event.LocalID.String(),
		Type:             event.Type,
		Latitude:         event.Location.Latitude,
		Longitude:        event.Location.Longitude,
		Accuracy:         event.Location.Accuracy,
		Altitude:         event.Location.Altitude,
		Heading:          event.Location.Heading,
		Speed:            event.Location.Speed,
		ObservedAt:       event.ObservedAt.UTC(),
		DeliveryAttempts: event.DeliveryAttempts,
	}
	if event.ZoneID != nil {
		payload.ZoneID = event.ZoneID.String()
	}
	return payload
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// FetchActiveZones загружает текущий набор активных геозон
func (c *APIClient) FetchActiveZones(ctx context.Context) ([]*models.Zone, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+activeZonesPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, body, nil)
	}

	zones := make([]*models.Zone, 0)
	if err := json.Unmarshal(body, &zones); err != nil {
		return nil, fmt.Errorf("failed to parse zones: %w", err)
	}
	return zones, nil
}

// SubmitAttendanceEvent отправляет одно событие. nil означает, что сервер
// сохранил событие сейчас или ранее (повтор с тем же local_id).
// Ошибки с Terminal() == true повторять бессмысленно.
func (c *APIClient) SubmitAttendanceEvent(ctx context.Context, event models.AttendanceEvent) error {
	jsonData, err := json.Marshal(newEventPayload(event))
	if err != nil {
		return &models.TerminalError{Err: fmt.Errorf("failed to marshal event: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+eventsPath, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	log := c.logger.WithFields(logrus.Fields{
		"local_id": event.LocalID,
		"type":     event.Type,
	})

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		log.WithError(err).WithField("duration", duration).Warn("Failed to send attendance event")
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		log.WithFields(logrus.Fields{
			"status_code": resp.StatusCode,
			"duration":    duration,
		}).Info("Attendance event delivered")
		return nil
	default:
		err := statusError(resp.StatusCode, body, readErr)
		log.WithError(err).WithField("status_code", resp.StatusCode).Warn("Backend did not accept attendance event")
		return err
	}
}

func (c *APIClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// statusError классифицирует неуспешный ответ.
// 401, 408 и 429 временные: токен могут обновить, лимит истечет.
// Если тело прочитано не до конца, причина берется из текста статуса.
func statusError(statusCode int, body []byte, readErr error) error {
	var parsed errorBody
	_ = json.Unmarshal(body, &parsed)
	reason := parsed.Error
	switch {
	case reason != "":
	case readErr != nil:
		reason = fmt.Sprintf("%s (response body unreadable: %v)", http.StatusText(statusCode), readErr)
	default:
		reason = strings.TrimSpace(string(body))
	}

	switch {
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusTooManyRequests,
		statusCode >= 500:
		return &StatusError{StatusCode: statusCode, Message: reason}
	case statusCode >= 400:
		return &RejectedError{StatusCode: statusCode, Code: parsed.Code, Reason: reason}
	default:
		return &StatusError{StatusCode: statusCode, Message: reason}
	}
}

// RejectedError - сервер окончательно отклонил запрос (400, 403, 404, 422 ...)
type RejectedError struct {
	StatusCode int
	Code       string
	Reason     string
}

func (e *RejectedError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend rejected request with status %d (%s): %s", e.StatusCode, e.Code, e.Reason)
	}
	return fmt.Sprintf("backend rejected request with status %d: %s", e.StatusCode, e.Reason)
}

func (e *RejectedError) Terminal() bool {
	return true
}

// StatusError - временная ошибка сервера
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// IdentityFromToken достает идентификатор сотрудника из токена агента без проверки подписи.
// Подпись проверяет сервер; агенту нужен только user_id для локальной проверки членства.
func IdentityFromToken(token string) (string, error) {
	claims := struct {
		UserID string `json:"user_id"`
		jwt.RegisteredClaims
	}{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", fmt.Errorf("failed to parse agent token: %w", err)
	}
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	return "", errors.New("agent token carries no user identity")
}
