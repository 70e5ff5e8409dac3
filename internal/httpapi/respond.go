// Package httpapi exposes the role-gated REST surface.
package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/identity"
)

// message is the uniform error envelope.
func message(msg string) gin.H {
	return gin.H{"message": msg}
}

// fail maps a domain error to the response envelope. Unrecognized errors are
// a 500 with a generic message; store and driver details never reach the
// caller.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, identity.ErrConflict):
		c.JSON(http.StatusBadRequest, message("Already exists"))
	case errors.Is(err, identity.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, message("Invalid credentials"))
	case errors.Is(err, identity.ErrNotFound):
		c.JSON(http.StatusNotFound, message("Not found"))
	case errors.Is(err, attendance.ErrNotFound):
		c.JSON(http.StatusNotFound, message("Attendance record not found"))
	case errors.Is(err, attendance.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, message("Invalid attendance status"))
	case errors.Is(err, attendance.ErrInvalidSubject):
		c.JSON(http.StatusBadRequest, message("Attendance can only be recorded for students"))
	default:
		c.JSON(http.StatusInternalServerError, message("Server error"))
	}
}
