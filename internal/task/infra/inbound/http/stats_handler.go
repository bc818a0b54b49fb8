package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jamaynor/maynor-kernel/internal/shared/infra/analytics/clickhouse"
	taskDomain "github.com/jamaynor/maynor-kernel/internal/task/domain"
	"github.com/jamaynor/maynor-kernel/pkg/utils"
)

// defaultStatsWindow es el rango usado cuando no llegan from/to.
const defaultStatsWindow = 7 * 24 * time.Hour

// EventStats es lo que los endpoints de estadísticas necesitan del archivo de eventos.
type EventStats interface {
	DailyTrend(ctx context.Context, aggregateType string, start, end time.Time) ([]clickhouse.DailyCount, error)
	AverageTimeBetween(ctx context.Context, aggregateType, fromEvent, toEvent string, start, end time.Time) (time.Duration, error)
}

// StatsHandler expone métricas de tareas calculadas sobre los eventos archivados.
type StatsHandler struct {
	stats EventStats
	log   *zap.Logger
	now   func() time.Time
}

func NewStatsHandler(stats EventStats, log *zap.Logger) *StatsHandler {
	return &StatsHandler{stats: stats, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// RegisterStatsRoutes cuelga las estadísticas de /stats/tasks.
func RegisterStatsRoutes(r *gin.Engine, handler *StatsHandler) {
	stats := r.Group("/stats/tasks")
	{
		stats.GET("/daily", handler.DailyTrend)
		stats.GET("/completion-time", handler.CompletionTime)
	}
}

// DailyTrend endpoint GET /stats/tasks/daily?from=&to=
func (h *StatsHandler) DailyTrend(c *gin.Context) {
	start, end, ok := h.window(c)
	if !ok {
		return
	}

	trend, err := h.stats.DailyTrend(c.Request.Context(), taskDomain.AggregateType, start, end)
	if err != nil {
		h.log.Error("Failed to query daily trend", zap.Error(err))
		utils.SendInternalServerError(c, "internal error")
		return
	}
	if trend == nil {
		trend = []clickhouse.DailyCount{}
	}
	utils.SendSuccess(c, http.StatusOK, trend)
}

// CompletionTime endpoint GET /stats/tasks/completion-time: tiempo medio entre la
// creación y la finalización de las tareas.
func (h *StatsHandler) CompletionTime(c *gin.Context) {
	start, end, ok := h.window(c)
	if !ok {
		return
	}

	avg, err := h.stats.AverageTimeBetween(c.Request.Context(), taskDomain.AggregateType,
		taskDomain.EventTaskCreated, taskDomain.EventTaskCompleted, start, end)
	if err != nil {
		h.log.Error("Failed to query completion time", zap.Error(err))
		utils.SendInternalServerError(c, "internal error")
		return
	}
	utils.SendSuccess(c, http.StatusOK, gin.H{
		"averageSeconds": avg.Seconds(),
		"from":           start,
		"to":             end,
	})
}

func (h *StatsHandler) window(c *gin.Context) (time.Time, time.Time, bool) {
	end := h.now()
	start := end.Add(-defaultStatsWindow)

	for param, dst := range map[string]*time.Time{"from": &start, "to": &end} {
		if v := c.Query(param); v != "" {
			at, err := time.Parse(time.RFC3339, v)
			if err != nil {
				utils.SendBadRequest(c, "invalid "+param)
				return time.Time{}, time.Time{}, false
			}
			*dst = at
		}
	}
	if !start.Before(end) {
		utils.SendBadRequest(c, "from must be before to")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
