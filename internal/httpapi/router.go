package httpapi

import (
	"github.com/gin-gonic/gin"

	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/identity"
)

// API holds the handler dependencies.
type API struct {
	dir    *identity.Directory
	ledger *attendance.Service
	tokens *auth.Issuer
}

// New creates the API with its dependencies.
func New(dir *identity.Directory, ledger *attendance.Service, tokens *auth.Issuer) *API {
	return &API{dir: dir, ledger: ledger, tokens: tokens}
}

// Mount registers every route under /api. Each gated group requires exactly
// one role; the auth gate runs before any handler touching identity or
// attendance data.
func (a *API) Mount(r *gin.Engine) {
	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", a.Register)
	authGroup.POST("/login", a.Login)
	authGroup.POST("/forgot-password", a.ForgotPassword)
	authGroup.POST("/reset-password", a.ResetPassword)

	admin := api.Group("/admin", auth.RequireAuth(a.tokens), auth.RequireRole(identity.RoleAdmin))
	admin.POST("/add-teacher", a.AddTeacher)
	admin.GET("/teachers", a.ListTeachers)
	admin.DELETE("/teachers/:username", a.DeleteTeacher)
	admin.POST("/add-student", a.AddStudent)
	admin.GET("/students", a.ListStudents)
	admin.DELETE("/students/:id", a.DeleteStudent)

	student := api.Group("/student", auth.RequireAuth(a.tokens), auth.RequireRole(identity.RoleStudent))
	student.GET("/profile", a.Profile)
	student.GET("/attendance", a.MyAttendance)
	student.POST("/attendance", a.CheckIn)
	student.PUT("/attendance/:id", a.UpdateMyAttendance)
	student.DELETE("/attendance/:id", a.DeleteMyAttendance)

	teacher := api.Group("/teacher", auth.RequireAuth(a.tokens), auth.RequireRole(identity.RoleTeacher))
	teacher.GET("/students", a.Roster)
	teacher.POST("/attendance", a.Mark)
	teacher.DELETE("/attendance/:studentId", a.DeleteToday)
	teacher.GET("/attendance/:studentId", a.StudentHistory)
	teacher.GET("/attendance-summary", a.TodaySummary)
}
