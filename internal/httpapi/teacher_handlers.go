package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
)

type markRequest struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// Roster returns every student with their status for today, null when
// unmarked.
func (a *API) Roster(c *gin.Context) {
	entries, err := a.ledger.RosterWithTodayStatus(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if entries == nil {
		entries = []attendance.RosterEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

// Mark upserts a student's record for today.
func (a *API) Mark(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" || req.Status == "" {
		c.JSON(http.StatusBadRequest, message("User id and status required"))
		return
	}
	rec, err := a.ledger.MarkByTeacher(c.Request.Context(), req.UserID, req.Status)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Attendance marked", "record": rec})
}

// DeleteToday removes a student's record for today; succeeds even when none
// exists.
func (a *API) DeleteToday(c *gin.Context) {
	if err := a.ledger.DeleteToday(c.Request.Context(), c.Param("studentId")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Attendance deleted"))
}

// StudentHistory returns a student's full history, newest first.
func (a *API) StudentHistory(c *gin.Context) {
	records, err := a.ledger.History(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		fail(c, err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	c.JSON(http.StatusOK, records)
}

// TodaySummary aggregates today's records by status.
func (a *API) TodaySummary(c *gin.Context) {
	sum, err := a.ledger.Summary(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
