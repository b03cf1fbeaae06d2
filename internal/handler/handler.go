package handler

import (
	"net/http"

	"backend/internal/workflow"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeTransitionError maps workflow denials onto HTTP statuses: refused
// edges and repeats are conflicts, missing permissions are forbidden.
// Anything else is a server error.
func writeTransitionError(c *gin.Context, err error) {
	if d, ok := workflow.AsDenial(err); ok {
		switch d.Reason {
		case workflow.DenialPermissionDenied:
			c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, d.Error()))
		default:
			c.JSON(http.StatusConflict, response.Error(http.StatusConflict, d.Error()))
		}
		return
	}
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
}
