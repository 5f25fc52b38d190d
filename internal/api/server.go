// Package api is the JSON HTTP surface over the directory and the
// attendance aggregator. Handlers only parse requests and shape responses.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/directory"
)

// Server holds the handler dependencies.
type Server struct {
	dir    *directory.Service
	att    *attendance.Service
	issuer *auth.Issuer
	logger *slog.Logger
	now    func() time.Time
}

// NewServer wires handlers. now supplies "today" for requests that omit a
// date; nil means the wall clock.
func NewServer(dir *directory.Service, att *attendance.Service, issuer *auth.Issuer, logger *slog.Logger, now func() time.Time) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Server{dir: dir, att: att, issuer: issuer, logger: logger, now: now}
}

// Register mounts the /v1 routes on r.
func (s *Server) Register(r gin.IRouter) {
	v1 := r.Group("/v1")
	v1.POST("/auth/refresh", s.refresh)
	v1.GET("/classrooms", s.listClassrooms)

	authed := v1.Group("", auth.RequireUser(s.issuer))
	authed.POST("/classrooms", s.createClassroom)
	authed.GET("/classrooms/:id", s.getClassroom)
	authed.GET("/classrooms/:id/students", s.listStudents)
	authed.POST("/classrooms/:id/students", s.addStudent)
	authed.GET("/classrooms/:id/attendance", s.statusMap)
	authed.POST("/classrooms/:id/attendance", s.markDay)
	authed.GET("/reports/monthly", s.monthlyReport)
	authed.GET("/attendance", s.findAttendance)
	authed.GET("/dashboard", s.dashboard)
}

func (s *Server) today() time.Time {
	return attendance.Day(s.now())
}

func respond(c *gin.Context, code int, body gin.H) {
	body["success"] = true
	c.JSON(code, body)
}

// fail maps an error kind to a status code and reports it to the client.
func (s *Server) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, apperr.ErrConflict):
		code = http.StatusConflict
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
	}
	c.JSON(code, gin.H{"success": false, "error": apperr.Reason(err)})
}

func (s *Server) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperr.Invalid("%s", err.Error()))
		return
	}
	pair, err := s.issuer.Refresh(c.Request.Context(), req.RefreshToken)
	if errors.Is(err, auth.ErrInvalidToken) {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid refresh token"})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"tokens": pair})
}
