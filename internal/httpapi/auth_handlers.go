package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"rollcall/internal/identity"
)

var loginsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rollcall_logins_total",
		Help: "Login attempts, by role and outcome",
	},
	[]string{"role", "outcome"},
)

func init() {
	prometheus.MustRegister(loginsTotal)
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type passwordResetRequest struct {
	Username    string `json:"username"`
	NewPassword string `json:"newPassword"`
}

// Register handles student self-registration. Only students may
// self-register; teachers and admins are created by an admin.
func (a *API) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" || req.Role == "" {
		c.JSON(http.StatusBadRequest, message("Username, password, and role required"))
		return
	}
	if req.Role != identity.RoleStudent {
		c.JSON(http.StatusForbidden, message("Only students can self-register"))
		return
	}
	if _, err := a.dir.CreateStudent(c.Request.Context(), req.Username, req.Password); err != nil {
		if err == identity.ErrConflict {
			c.JSON(http.StatusBadRequest, message("Username already taken"))
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Student registered successfully"))
}

// Login resolves credentials across both identity stores and mints a
// session token carrying subject id and role.
func (a *API) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" || req.Role == "" {
		c.JSON(http.StatusBadRequest, message("Username, password, and role required"))
		return
	}
	subjectID, role, err := a.dir.Authenticate(c.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		loginsTotal.WithLabelValues(req.Role, "failure").Inc()
		fail(c, err)
		return
	}
	token, _, err := a.tokens.Issue(subjectID, role)
	if err != nil {
		fail(c, err)
		return
	}
	loginsTotal.WithLabelValues(role, "success").Inc()
	c.JSON(http.StatusOK, gin.H{"token": token, "role": role})
}

// ForgotPassword sets a new password for a document-store user without
// requiring the old one.
func (a *API) ForgotPassword(c *gin.Context) {
	a.resetPassword(c)
}

// ResetPassword is an alias of the forgot-password flow kept for the
// existing client.
func (a *API) ResetPassword(c *gin.Context) {
	a.resetPassword(c)
}

func (a *API) resetPassword(c *gin.Context) {
	var req passwordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.NewPassword == "" {
		c.JSON(http.StatusBadRequest, message("Username and new password required"))
		return
	}
	if err := a.dir.ResetPassword(c.Request.Context(), req.Username, req.NewPassword); err != nil {
		if err == identity.ErrNotFound {
			c.JSON(http.StatusNotFound, message("User not found"))
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Password updated successfully"))
}
