package server

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/p-n-ai/campus/internal/campus"
	"github.com/p-n-ai/campus/internal/editor"
	"github.com/p-n-ai/campus/internal/profile"
	"github.com/p-n-ai/campus/internal/render"
	"github.com/p-n-ai/campus/internal/report"
)

// authorize bootstraps the caller and applies the profile gate. On failure
// the error response is already written.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (campus.Session, bool) {
	sess, err := s.app.Authorize(r.Context(), r.Header.Get(UserHeader))
	if err != nil {
		s.writeErrorMissing(w, r, err, sess.Missing)
		return sess, false
	}
	return sess, true
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.app.Bootstrap(r.Context(), r.Header.Get(UserHeader))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var p profile.Profile
	if err := decodeJSON(w, r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.app.SaveProfile(r.Context(), r.Header.Get(UserHeader), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.app.Dashboard(r.Context(), r.Header.Get(UserHeader))
	if err != nil {
		s.writeErrorMissing(w, r, err, d.Session.Missing)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUnit(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	view, err := s.app.Unit(r.Context(), sess, r.PathValue("unit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	view, err := s.app.Unit(r.Context(), sess, r.PathValue("unit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, render.Unit(view.Unit, func(id string) bool { return view.Visited[id] }))
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	view, err := s.app.Unit(r.Context(), sess, r.PathValue("unit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	root := render.Unit(view.Unit, func(id string) bool { return view.Visited[id] })
	if err := render.HTML(&buf, view.Unit.Title, root); err != nil {
		s.logger.Error("rendering preview", "unit_id", view.Unit.ID, "error", err)
		http.Error(w, "preview unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	rec, err := s.app.ToggleBlock(r.Context(), sess, r.PathValue("unit"), r.PathValue("block"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	form, err := s.app.Draft(r.Context(), sess, r.PathValue("unit"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// handlePublish creates a unit (POST) or replaces the one in the path (PUT).
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var form editor.Form
	if err := decodeJSON(w, r, &form); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.app.PublishUnit(r.Context(), sess, r.PathValue("unit"), form)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if r.Method == http.MethodPost {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

func (s *Server) handleRequestEnrollment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var req struct {
		SubjectID string `json:"subject_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, err := s.app.RequestEnrollment(r.Context(), sess, req.SubjectID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rows)
}

func (s *Server) handleCancelEnrollment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	rows, err := s.app.CancelEnrollment(r.Context(), sess, r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDecideEnrollment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var req struct {
		Approve bool `json:"approve"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	rows, err := s.app.DecideEnrollment(r.Context(), sess, r.PathValue("id"), req.Approve)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.authorize(w, r)
	if !ok {
		return
	}
	subjectID := r.PathValue("subject")

	var buf bytes.Buffer
	if err := s.app.Report(r.Context(), sess, subjectID, &buf); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": subjectID + "-progress.xlsx"}))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
