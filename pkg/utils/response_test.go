package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("title: %w", sharedDomain.ErrInvalidArgument), http.StatusBadRequest},
		{fmt.Errorf("task %w", sharedDomain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("task 1: %w", sharedDomain.ErrConcurrencyConflict), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestSendBindingError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var req struct {
			Title string `json:"title" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			SendBindingError(c, err)
			return
		}
		SendSuccess(c, http.StatusOK, req.Title)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", jsonBody(`{}`))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		Error ErrorResponse `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation failed", body.Error.Message)
	assert.Equal(t, []string{"title:required"}, body.Error.Fields)
}

func jsonBody(s string) *bytes.Reader {
	return bytes.NewReader([]byte(s))
}
