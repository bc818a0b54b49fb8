package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jamaynor/maynor-kernel/internal/task/application"
	taskDomain "github.com/jamaynor/maynor-kernel/internal/task/domain"
	"github.com/jamaynor/maynor-kernel/pkg/utils"
	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
	sharedQuery "github.com/jamaynor/maynor-kernel/shared/platform/query"
)

// TaskHandler encapsula los endpoints HTTP relacionados con Task.
type TaskHandler struct {
	service *application.TaskService
	log     *zap.Logger
}

// NewTaskHandler crea un nuevo TaskHandler.
func NewTaskHandler(service *application.TaskService, log *zap.Logger) *TaskHandler {
	return &TaskHandler{service: service, log: log}
}

type createTaskRequest struct {
	Title       string    `json:"title" binding:"required,max=200"`
	Description string    `json:"description" binding:"max=2000"`
	AssigneeID  uuid.UUID `json:"assigneeId" binding:"required"`
	CreatedBy   string    `json:"createdBy" binding:"max=100"`
}

type renameTaskRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

type failTaskRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// --- Handlers CRUD ---

// CreateTask endpoint POST /tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBindingError(c, err)
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), req.Title, req.Description, req.AssigneeID, req.CreatedBy)
	if err != nil {
		h.sendError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusCreated, task)
}

// GetTask endpoint GET /tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	task, err := h.service.GetTaskByID(c.Request.Context(), id)
	if err != nil {
		h.sendError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, task)
}

// RenameTask endpoint PUT /tasks/:id
func (h *TaskHandler) RenameTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req renameTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendBindingError(c, err)
		return
	}

	task, err := h.service.RenameTask(c.Request.Context(), id, req.Title, req.Description)
	if err != nil {
		h.sendError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, task)
}

// CompleteTask endpoint POST /tasks/:id/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	task, err := h.service.CompleteTask(c.Request.Context(), id)
	if err != nil {
		h.sendError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, task)
}

// FailTask endpoint POST /tasks/:id/fail
func (h *TaskHandler) FailTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req failTaskRequest
	// el cuerpo es opcional
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendBindingError(c, err)
			return
		}
	}

	task, err := h.service.FailTask(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.sendError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, task)
}

// DeleteTask endpoint DELETE /tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteTask(c.Request.Context(), id); err != nil {
		h.sendError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListTasks endpoint GET /tasks con filtros, paginación y ordenamiento
func (h *TaskHandler) ListTasks(c *gin.Context) {
	var criterias []sharedDomain.Criteria

	// --- Filtros desde query params ---
	if title := c.Query("title"); title != "" {
		criterias = append(criterias, taskDomain.TitleLikeCriteria{Title: title})
	}
	if status := c.Query("status"); status != "" {
		st, err := taskDomain.ParseTaskStatus(status)
		if err != nil {
			utils.SendBadRequest(c, err.Error())
			return
		}
		criterias = append(criterias, taskDomain.StatusCriteria{Status: st})
	}
	if assigneeID := c.Query("assigneeId"); assigneeID != "" {
		id, err := uuid.Parse(assigneeID)
		if err != nil {
			utils.SendBadRequest(c, "invalid assigneeId")
			return
		}
		criterias = append(criterias, taskDomain.AssigneeIDCriteria{ID: id})
	}

	var rng taskDomain.CreatedAtRangeCriteria
	for param, dst := range map[string]**time.Time{"createdFrom": &rng.Start, "createdTo": &rng.End} {
		if v := c.Query(param); v != "" {
			at, err := time.Parse(time.RFC3339, v)
			if err != nil {
				utils.SendBadRequest(c, "invalid "+param)
				return
			}
			*dst = &at
		}
	}
	criterias = append(criterias, rng)

	criteria := sharedDomain.And(criterias...)

	// --- Sort ---
	sortParam := sharedQuery.Sort{Field: taskDomain.DefaultSortField, Desc: true}
	if sortField := c.Query("sort_field"); sortField != "" {
		sortParam.Field = sortField
		sortParam.Desc = c.Query("sort_desc") == "true"
	}

	// --- Paginación ---
	limit, errLimit := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(sharedQuery.DefaultLimit)))
	offset, errOffset := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if errLimit != nil || errOffset != nil {
		utils.SendBadRequest(c, "limit and offset must be integers")
		return
	}
	pagination := sharedQuery.OffsetPagination{Limit: limit, Offset: offset}

	// --- Llamada al servicio ---
	tasks, err := h.service.ListTasks(c.Request.Context(), criteria, pagination, sortParam)
	if err != nil {
		h.sendError(c, err)
		return
	}

	utils.SendSuccess(c, http.StatusOK, tasks)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendBadRequest(c, "invalid task id")
		return uuid.Nil, false
	}
	return id, true
}

// sendError mapea errores de dominio a respuestas HTTP.
func (h *TaskHandler) sendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, taskDomain.ErrTaskAlreadyExists),
		errors.Is(err, taskDomain.ErrTaskCannotComplete),
		errors.Is(err, taskDomain.ErrTaskCannotFail),
		errors.Is(err, taskDomain.ErrTaskDeleted):
		utils.SendConflict(c, err.Error())
		return
	}

	status := utils.StatusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		utils.SendInternalServerError(c, "internal error")
		return
	}
	utils.SendError(c, status, err.Error())
}
