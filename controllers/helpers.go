package controllers

import (
	"errors"
	"strings"

	"github.com/toc8730/StepSync/services"

	"github.com/gin-gonic/gin"
)

// fail maps a service error onto the HTTP response. The sentinel prefix is
// stripped so clients see the human message, not the taxonomy label.
func fail(c *gin.Context, err error) {
	if errors.Is(err, services.ErrRoleRequired) {
		c.JSON(services.HTTPStatus(err), gin.H{
			"error":      "role_required",
			"needs_role": true,
			"message":    "Select whether this Google account should be parent or child.",
		})
		return
	}
	c.JSON(services.HTTPStatus(err), gin.H{"error": errorMessage(err)})
}

func errorMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{
		services.ErrNotFound,
		services.ErrUnauthorized,
		services.ErrConflict,
		services.ErrInvalidInput,
	} {
		if prefix := sentinel.Error() + ": "; strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func currentUsername(c *gin.Context) string {
	return c.GetString("username")
}
