package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jamaynor/maynor-kernel/internal/task/application"
	taskDomain "github.com/jamaynor/maynor-kernel/internal/task/domain"
	"github.com/jamaynor/maynor-kernel/tests/mocks"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Message string   `json:"message"`
		Fields  []string `json:"fields"`
	} `json:"error"`
}

func setupRouter(t *testing.T) (*gin.Engine, *mocks.InMemoryTaskRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := mocks.NewInMemoryTaskRepo()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	service := application.NewTaskService(repo, nil, zap.NewNop(), application.WithClock(func() time.Time { return now }))

	r := gin.New()
	RegisterTaskRoutes(r, NewTaskHandler(service, zap.NewNop()))
	return r, repo
}

func doRequest(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func createTask(t *testing.T, r *gin.Engine, title string, assignee uuid.UUID) taskDomain.TaskSnapshot {
	t.Helper()
	w, env := doRequest(t, r, http.MethodPost, "/tasks", map[string]any{
		"title": title, "description": "desc", "assigneeId": assignee, "createdBy": "api",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var snap taskDomain.TaskSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	return snap
}

func TestTaskHandler_CreateAndGet(t *testing.T) {
	// Arrange
	r, repo := setupRouter(t)
	assignee := uuid.New()

	// Act
	created := createTask(t, r, "Escribir tests", assignee)
	w, env := doRequest(t, r, http.MethodGet, "/tasks/"+created.ID.String(), nil)

	// Assert
	require.Equal(t, http.StatusOK, w.Code)
	var got taskDomain.TaskSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Escribir tests", got.Title)
	assert.Equal(t, assignee, got.AssigneeID)
	assert.Equal(t, taskDomain.StatusPending, got.Status)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, "api", got.CreatedBy)
	assert.Len(t, repo.Outbox, 1)
}

func TestTaskHandler_CreateValidation(t *testing.T) {
	r, repo := setupRouter(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "sin título", body: map[string]any{"assigneeId": uuid.New()}},
		{name: "sin responsable", body: map[string]any{"title": "x"}},
		{name: "título en blanco", body: map[string]any{"title": "   ", "assigneeId": uuid.New()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doRequest(t, r, http.MethodPost, "/tasks", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.NotEmpty(t, env.Error.Message)
		})
	}
	assert.Empty(t, repo.Outbox)
}

func TestTaskHandler_GetErrors(t *testing.T) {
	r, _ := setupRouter(t)

	w, _ := doRequest(t, r, http.MethodGet, "/tasks/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := doRequest(t, r, http.MethodGet, "/tasks/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "task not found", env.Error.Message)
}

func TestTaskHandler_Lifecycle(t *testing.T) {
	// Arrange
	r, repo := setupRouter(t)
	created := createTask(t, r, "Original", uuid.New())
	path := "/tasks/" + created.ID.String()

	// Act + Assert: renombrar
	w, env := doRequest(t, r, http.MethodPut, path, map[string]any{"title": "Renombrada", "description": "nueva"})
	require.Equal(t, http.StatusOK, w.Code)
	var snap taskDomain.TaskSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, "Renombrada", snap.Title)
	assert.Equal(t, 2, snap.Version)

	// completar
	w, _ = doRequest(t, r, http.MethodPost, path+"/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)

	// completar dos veces es un conflicto
	w, env = doRequest(t, r, http.MethodPost, path+"/complete", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, taskDomain.ErrTaskCannotComplete.Error(), env.Error.Message)

	// fallar una tarea completada también
	w, _ = doRequest(t, r, http.MethodPost, path+"/fail", map[string]any{"reason": "tarde"})
	assert.Equal(t, http.StatusConflict, w.Code)

	// borrar
	w, _ = doRequest(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w, _ = doRequest(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var types []string
	for _, evt := range repo.Outbox {
		types = append(types, evt.EventType)
	}
	assert.Equal(t, []string{
		taskDomain.EventTaskCreated,
		taskDomain.EventTaskUpdated,
		taskDomain.EventTaskCompleted,
		taskDomain.EventTaskDeleted,
	}, types)
}

func TestTaskHandler_FailWithoutBody(t *testing.T) {
	r, _ := setupRouter(t)
	created := createTask(t, r, "Fallará", uuid.New())

	w, env := doRequest(t, r, http.MethodPost, "/tasks/"+created.ID.String()+"/fail", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var snap taskDomain.TaskSnapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, taskDomain.StatusFailed, snap.Status)
}

func TestTaskHandler_List(t *testing.T) {
	// Arrange
	r, _ := setupRouter(t)
	ana := uuid.New()
	createTask(t, r, "Informe mensual", ana)
	createTask(t, r, "Revisar informe", ana)
	createTask(t, r, "Llamar", uuid.New())

	tests := []struct {
		name   string
		query  string
		status int
		count  int
	}{
		{name: "todas", query: "", status: http.StatusOK, count: 3},
		{name: "por título", query: "?title=informe", status: http.StatusOK, count: 2},
		{name: "por responsable y estado", query: "?assigneeId=" + ana.String() + "&status=pending", status: http.StatusOK, count: 2},
		{name: "paginado", query: "?limit=1&offset=1&sort_field=title", status: http.StatusOK, count: 1},
		{name: "rango de fechas", query: "?createdFrom=2024-06-01T00:00:00Z&createdTo=2024-06-02T00:00:00Z", status: http.StatusOK, count: 3},
		{name: "estado desconocido", query: "?status=archived", status: http.StatusBadRequest},
		{name: "responsable inválido", query: "?assigneeId=nope", status: http.StatusBadRequest},
		{name: "límite no numérico", query: "?limit=abc", status: http.StatusBadRequest},
		{name: "fecha inválida", query: "?createdFrom=ayer", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			w, env := doRequest(t, r, http.MethodGet, "/tasks"+tt.query, nil)

			// Assert
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var list []taskDomain.TaskSnapshot
			require.NoError(t, json.Unmarshal(env.Data, &list))
			assert.Len(t, list, tt.count)
		})
	}
}
