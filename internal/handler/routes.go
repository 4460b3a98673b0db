package handler

import (
	"github.com/gin-gonic/gin"
)

// Routes bundles the handlers and guards mounted under the API prefix.
type Routes struct {
	Progress    *ProgressHandler
	Assignments *AssignmentHandler
	Metrics     *MetricsHandler
	// Auth runs before every API route when set; StudentScope runs after it.
	Auth         gin.HandlerFunc
	StudentScope gin.HandlerFunc
}

// Register mounts operational endpoints at the root and the API under prefix.
func (r Routes) Register(router gin.IRouter, prefix string) {
	if r.Metrics != nil {
		router.GET("/health", r.Metrics.Health)
		router.GET("/ready", r.Metrics.Ready)
		router.GET("/metrics", r.Metrics.Prometheus)
	}

	api := router.Group(prefix)
	var guards []gin.HandlerFunc
	if r.Auth != nil {
		guards = append(guards, r.Auth)
		if r.StudentScope != nil {
			guards = append(guards, r.StudentScope)
		}
	}

	if r.Progress != nil {
		enrollment := api.Group("/classes/:classId/students/:studentId", guards...)
		enrollment.GET("/sessions", r.Progress.Sessions)
		enrollment.GET("/sessions/export", r.Progress.Export)
		enrollment.GET("/progress", r.Progress.Progress)
	}
	if r.Assignments != nil {
		student := api.Group("/students/:studentId", guards...)
		student.GET("/assignments/upcoming", r.Assignments.Upcoming)
		student.POST("/assignments/upcoming/refresh", r.Assignments.Refresh)
	}
}
