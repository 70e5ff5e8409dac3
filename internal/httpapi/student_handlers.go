package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/identity"
)

type statusRequest struct {
	Status string `json:"status"`
}

// Profile returns the logged-in student's account.
func (a *API) Profile(c *gin.Context) {
	student, err := a.dir.StudentProfile(c.Request.Context(), c.GetString(auth.CtxSubjectID))
	if err != nil {
		if err == identity.ErrNotFound {
			c.JSON(http.StatusNotFound, message("Student not found"))
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

// MyAttendance returns the student's full history, newest first.
func (a *API) MyAttendance(c *gin.Context) {
	records, err := a.ledger.History(c.Request.Context(), c.GetString(auth.CtxSubjectID))
	if err != nil {
		fail(c, err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, records)
}

// CheckIn records a self check-in dated now.
func (a *API) CheckIn(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, message("Status is required"))
		return
	}
	rec, err := a.ledger.MarkSelf(c.Request.Context(), c.GetString(auth.CtxSubjectID), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance marked successfully", "record": rec})
}

// UpdateMyAttendance updates one of the student's own records.
func (a *API) UpdateMyAttendance(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, message("Status is required"))
		return
	}
	rec, err := a.ledger.UpdateOwn(c.Request.Context(), c.Param("id"), c.GetString(auth.CtxSubjectID), req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance updated", "record": rec})
}

// DeleteMyAttendance deletes one of the student's own records.
func (a *API) DeleteMyAttendance(c *gin.Context) {
	if err := a.ledger.DeleteOwn(c.Request.Context(), c.Param("id"), c.GetString(auth.CtxSubjectID)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Attendance deleted"))
}
