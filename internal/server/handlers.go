package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ajujo/teaching-system/internal/library"
	"github.com/ajujo/teaching-system/internal/persona"
	"github.com/ajujo/teaching-system/internal/progress"
	"github.com/ajujo/teaching-system/internal/teaching"
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func respondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Error: apiError{Message: msg, Code: code}})
}

// respondSessionError answers an unknown session with 404 and the error
// event a live stream would have carried.
func (s *Server) respondSessionError(c *gin.Context, err error) {
	if teaching.IsSessionNotFound(err) {
		c.AbortWithStatusJSON(http.StatusNotFound, teaching.ErrorEvent(err))
		return
	}
	s.log.Error("session call failed", "session_id", c.Param("id"), "error", err)
	respondError(c, http.StatusInternalServerError, "internal", err)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": len(s.opts.Hub.Sessions())})
}

func (s *Server) listPersonas(c *gin.Context) {
	var out []persona.Persona
	if s.opts.Personas != nil {
		out = s.opts.Personas.List()
	}
	if out == nil {
		out = []persona.Persona{}
	}
	c.JSON(http.StatusOK, gin.H{"personas": out})
}

func (s *Server) listStudents(c *gin.Context) {
	if s.opts.Students == nil {
		c.JSON(http.StatusOK, gin.H{"students": []progress.StudentProfile{}})
		return
	}
	st, err := s.opts.Students.Load(c.Request.Context())
	if err != nil {
		s.log.Error("load students failed", "error", err)
		respondError(c, http.StatusInternalServerError, "persistence_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_student_id": st.ActiveStudentID, "students": st.Students})
}

func (s *Server) startSession(c *gin.Context) {
	var req teaching.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	started, err := s.opts.Hub.Start(c.Request.Context(), req)
	if err != nil {
		status, code := startFailure(err)
		if status >= http.StatusInternalServerError {
			s.log.Error("start session failed", "error", err)
		}
		respondError(c, status, code, err)
		return
	}
	c.JSON(http.StatusCreated, started)
}

func startFailure(err error) (int, string) {
	var pe *teaching.PersistenceError
	switch {
	case errors.Is(err, progress.ErrStudentNotFound):
		return http.StatusNotFound, "student_not_found"
	case errors.Is(err, persona.ErrNotFound):
		return http.StatusNotFound, "persona_not_found"
	case errors.Is(err, library.ErrUnitNotFound):
		return http.StatusNotFound, "unit_not_found"
	case errors.Is(err, teaching.ErrNoBook):
		return http.StatusBadRequest, "no_book"
	case errors.As(err, &pe):
		return http.StatusInternalServerError, "persistence_failed"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) getSession(c *gin.Context) {
	info, err := s.opts.Hub.Session(c.Param("id"))
	if err != nil {
		s.respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Text must be present but may be empty: an empty submit picks the
// persona's default after a failed point.
type inputRequest struct {
	Text *string `json:"text" binding:"required,max=2000"`
}

func (s *Server) submitInput(c *gin.Context) {
	var req inputRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	events, err := s.opts.Hub.Submit(c.Request.Context(), c.Param("id"), *req.Text)
	if err != nil {
		s.respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "events": events})
}

func (s *Server) endSession(c *gin.Context) {
	events, err := s.opts.Hub.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondSessionError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": c.Param("id"), "events": events})
}
