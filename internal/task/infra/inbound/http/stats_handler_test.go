package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jamaynor/maynor-kernel/internal/shared/infra/analytics/clickhouse"
	taskDomain "github.com/jamaynor/maynor-kernel/internal/task/domain"
)

type mockStats struct {
	mock.Mock
}

func (m *mockStats) DailyTrend(ctx context.Context, aggregateType string, start, end time.Time) ([]clickhouse.DailyCount, error) {
	args := m.Called(ctx, aggregateType, start, end)
	trend, _ := args.Get(0).([]clickhouse.DailyCount)
	return trend, args.Error(1)
}

func (m *mockStats) AverageTimeBetween(ctx context.Context, aggregateType, fromEvent, toEvent string, start, end time.Time) (time.Duration, error) {
	args := m.Called(ctx, aggregateType, fromEvent, toEvent, start, end)
	return args.Get(0).(time.Duration), args.Error(1)
}

var statsNow = time.Date(2024, 8, 10, 0, 0, 0, 0, time.UTC)

func setupStats(stats EventStats) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewStatsHandler(stats, zap.NewNop())
	h.now = func() time.Time { return statsNow }
	r := gin.New()
	RegisterStatsRoutes(r, h)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestStatsHandler_DailyTrendDefaultWindow(t *testing.T) {
	// Arrange
	stats := new(mockStats)
	day := statsNow.Add(-24 * time.Hour)
	stats.On("DailyTrend", mock.Anything, taskDomain.AggregateType, statsNow.Add(-defaultStatsWindow), statsNow).
		Return([]clickhouse.DailyCount{{Day: day, EventType: taskDomain.EventTaskCreated, Count: 3}}, nil).Once()

	// Act
	w := get(setupStats(stats), "/stats/tasks/daily")

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []clickhouse.DailyCount `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, uint64(3), body.Data[0].Count)
	assert.Equal(t, taskDomain.EventTaskCreated, body.Data[0].EventType)
	stats.AssertExpectations(t)
}

func TestStatsHandler_DailyTrendEmpty(t *testing.T) {
	stats := new(mockStats)
	stats.On("DailyTrend", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil).Once()

	w := get(setupStats(stats), "/stats/tasks/daily")

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestStatsHandler_CompletionTime(t *testing.T) {
	stats := new(mockStats)
	from := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 8, 2, 0, 0, 0, 0, time.UTC)
	stats.On("AverageTimeBetween", mock.Anything, taskDomain.AggregateType,
		taskDomain.EventTaskCreated, taskDomain.EventTaskCompleted, from, to).
		Return(90*time.Second, nil).Once()

	w := get(setupStats(stats), "/stats/tasks/completion-time?from=2024-08-01T00:00:00Z&to=2024-08-02T00:00:00Z")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			AverageSeconds float64 `json:"averageSeconds"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 90.0, body.Data.AverageSeconds)
	stats.AssertExpectations(t)
}

func TestStatsHandler_Errors(t *testing.T) {
	stats := new(mockStats)
	stats.On("AverageTimeBetween", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(time.Duration(0), errors.New("clickhouse down")).Once()
	r := setupStats(stats)

	assert.Equal(t, http.StatusBadRequest, get(r, "/stats/tasks/daily?from=ayer").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/stats/tasks/daily?from=2024-08-02T00:00:00Z&to=2024-08-01T00:00:00Z").Code)
	assert.Equal(t, http.StatusInternalServerError, get(r, "/stats/tasks/completion-time").Code)
	stats.AssertExpectations(t)
}
