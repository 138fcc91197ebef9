package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/apperr"
)

// abort stops the chain with the API error envelope.
func abort(c *gin.Context, err *apperr.Error) {
	body := gin.H{
		"success": false,
		"error":   err.Message,
		"message": err.Kind,
	}
	if len(err.Details) > 0 {
		body["details"] = err.Details
	}
	c.AbortWithStatusJSON(err.Kind.Status(), body)
}
