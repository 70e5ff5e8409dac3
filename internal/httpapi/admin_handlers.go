package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rollcall/internal/identity"
)

type addAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AddTeacher creates a teacher account in the key-value store.
func (a *API) AddTeacher(c *gin.Context) {
	var req addAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, message("Username and password required"))
		return
	}
	if _, err := a.dir.CreateTeacher(c.Request.Context(), req.Username, req.Password); err != nil {
		if err == identity.ErrConflict {
			c.JSON(http.StatusBadRequest, message("Teacher already exists"))
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Teacher added successfully"))
}

// ListTeachers returns all teacher accounts as {id, username} pairs.
func (a *API) ListTeachers(c *gin.Context) {
	teachers, err := a.dir.Teachers(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]gin.H, 0, len(teachers))
	for _, t := range teachers {
		out = append(out, gin.H{"id": t.ID, "username": t.Username})
	}
	c.JSON(http.StatusOK, out)
}

// DeleteTeacher removes a teacher account by username.
func (a *API) DeleteTeacher(c *gin.Context) {
	if err := a.dir.DeleteTeacher(c.Request.Context(), c.Param("username")); err != nil {
		if err == identity.ErrNotFound {
			c.JSON(http.StatusNotFound, message("Teacher not found"))
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Teacher deleted successfully"))
}

// AddStudent creates a student account on behalf of an admin.
func (a *API) AddStudent(c *gin.Context) {
	var req addAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, message("Username and password required"))
		return
	}
	if _, err := a.dir.CreateStudent(c.Request.Context(), req.Username, req.Password); err != nil {
		if err == identity.ErrConflict {
			c.JSON(http.StatusBadRequest, message("Student already exists"))
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Student added successfully"))
}

// ListStudents returns all student accounts, passwords redacted.
func (a *API) ListStudents(c *gin.Context) {
	students, err := a.dir.Students(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	if students == nil {
		students = []identity.User{}
	}
	c.JSON(http.StatusOK, students)
}

// DeleteStudent removes a student account by id.
func (a *API) DeleteStudent(c *gin.Context) {
	if err := a.dir.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		if err == identity.ErrNotFound {
			c.JSON(http.StatusNotFound, message("Student not found"))
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, message("Student deleted successfully"))
}
