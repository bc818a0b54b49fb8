package http

import "github.com/gin-gonic/gin"

// RegisterTaskRoutes registra las rutas HTTP para el dominio de Tareas.
func RegisterTaskRoutes(r *gin.Engine, handler *TaskHandler) {
	// Agrupamos todas las rutas de tareas bajo el prefijo "/tasks"
	tasks := r.Group("/tasks")
	{
		tasks.POST("", handler.CreateTask)
		tasks.GET("", handler.ListTasks)
		tasks.GET("/:id", handler.GetTask)
		tasks.PUT("/:id", handler.RenameTask)
		tasks.POST("/:id/complete", handler.CompleteTask)
		tasks.POST("/:id/fail", handler.FailTask)
		tasks.DELETE("/:id", handler.DeleteTask)
	}
}
