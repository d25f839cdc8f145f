package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campus-labs/attendance-api/internal/middleware"
	"github.com/campus-labs/attendance-api/internal/models"
	"github.com/campus-labs/attendance-api/internal/service"
)

// Handlers bundles the route handlers wired in main.
type Handlers struct {
	Auth     *AuthHandler
	Uploads  *UploadHandler
	Courses  *CourseHandler
	Sessions *SessionHandler
	Metrics  *MetricsHandler
}

// RegisterRoutes mounts the API surface under the given prefix. Mutating
// routes require a token; administrative routes additionally require the
// admin role.
func RegisterRoutes(r *gin.Engine, prefix string, auth *service.AuthService, h Handlers) {
	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	api := r.Group(prefix)

	api.POST("/auth/login", h.Auth.Login)
	api.GET("/downloads/reports", h.Sessions.DownloadReport)

	admin := api.Group("", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/auth/register", h.Auth.Register)
	admin.POST("/uploads/courses", h.Uploads.Courses)
	admin.POST("/uploads/students", h.Uploads.Students)
	admin.POST("/uploads/roster", h.Uploads.Roster)
	admin.DELETE("/courses/:id", h.Courses.Delete)
	admin.POST("/sections/:id/enrollments", h.Courses.Enroll)
	admin.POST("/sessions/:id/presence/revert", h.Sessions.Revert)

	staff := api.Group("", middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))
	staff.GET("/courses", h.Courses.List)
	staff.GET("/sections/:id", h.Courses.SectionDetail)
	staff.GET("/sections/:id/roster", h.Courses.Roster)
	staff.POST("/sessions/:id/start", h.Sessions.Start)
	staff.POST("/sessions/:id/stop", h.Sessions.Stop)
	staff.POST("/sessions/:id/presence", h.Sessions.MarkPresence)
	staff.POST("/sessions/:id/recognize", h.Sessions.Recognize)
	staff.GET("/sessions/:id/absentees", h.Sessions.Absentees)
	staff.POST("/sessions/:id/notify", h.Sessions.Notify)
	staff.GET("/sessions/:id/report", h.Sessions.Report)
	staff.GET("/sessions/:id/report/link", h.Sessions.ReportLink)
	staff.GET("/sessions/:id/report.pdf", h.Sessions.ReportPDF)
	staff.GET("/sessions/:id/report.csv", h.Sessions.ReportCSV)
}
