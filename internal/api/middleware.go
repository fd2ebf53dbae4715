package api

import (
	"errors"
	"net/http"

	"github.com/annel0/gridcast/internal/app"
	"github.com/annel0/gridcast/internal/editor"
	"github.com/annel0/gridcast/internal/gridmap"
	"github.com/annel0/gridcast/internal/storage"
	"github.com/gin-gonic/gin"
)

// corsMiddleware разрешает запросы отладочных клиентов с любого origin
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// statusForError переводит доменные ошибки в HTTP-статус
func statusForError(err error) int {
	switch {
	case errors.Is(err, app.ErrNoSet),
		errors.Is(err, editor.ErrNoCell),
		errors.Is(err, editor.ErrNoFace),
		errors.Is(err, storage.ErrMapNotFound):
		return http.StatusNotFound
	case errors.Is(err, gridmap.ErrSolidFloor),
		errors.Is(err, gridmap.ErrCellSolid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, app.ErrNoStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail пишет ответ с ошибкой
func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, GenericResponse{Success: false, Message: message})
}

// failErr пишет ответ с ошибкой и статусом по её типу
func failErr(c *gin.Context, err error) {
	fail(c, statusForError(err), err.Error())
}
