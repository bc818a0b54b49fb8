package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	sharedDomain "github.com/jamaynor/maynor-kernel/shared/domain"
)

// ErrorResponse define la estructura estándar para las respuestas de error.
type ErrorResponse struct {
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// SendSuccess envía una respuesta exitosa con un payload de datos.
func SendSuccess(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, gin.H{
		"data": data,
	})
}

// SendError envía una respuesta de error con un formato estandarizado.
func SendError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error": ErrorResponse{
			Message: message,
		},
	})
}

// --- Helpers específicos para errores comunes ---

func SendBadRequest(c *gin.Context, message string) {
	SendError(c, http.StatusBadRequest, message)
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, message)
}

func SendConflict(c *gin.Context, message string) {
	SendError(c, http.StatusConflict, message)
}

func SendInternalServerError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, message)
}

// SendBindingError responde 400 a un cuerpo que no pasa la validación de gin, listando los
// campos que fallan.
func SendBindingError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		SendBadRequest(c, err.Error())
		return
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s:%s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error": ErrorResponse{Message: "validation failed", Fields: fields},
	})
}

// StatusFor traduce los errores del kernel a códigos HTTP. Lo que no reconoce es un 500.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, sharedDomain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, sharedDomain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sharedDomain.ErrConcurrencyConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
