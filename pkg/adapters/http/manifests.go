package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// MaxImportBytes caps the body accepted by the import endpoint.
const MaxImportBytes = 4 << 20

type createRequest struct {
	Manifest *domain.Manifest `json:"manifest"`
	Author   string           `json:"author,omitempty"`
}

type updateRequest struct {
	Manifest   *domain.Manifest `json:"manifest"`
	ChangeNote string           `json:"change_note,omitempty"`
	Author     string           `json:"author,omitempty"`
}

type rollbackRequest struct {
	Version int    `json:"version"`
	Author  string `json:"author,omitempty"`
}

type statusRequest struct {
	Status domain.Status `json:"status"`
}

type templateRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type instantiateRequest struct {
	Name   string `json:"name,omitempty"`
	Author string `json:"author,omitempty"`
}

func (s *Server) listManifests(w http.ResponseWriter, r *http.Request) {
	var (
		list []*domain.Manifest
		err  error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		list, err = s.svc.Search(r.Context(), q)
	} else {
		list, err = s.svc.List(r.Context(), domain.Status(r.URL.Query().Get("status")))
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*domain.Manifest{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) createManifest(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, r, err)
		return
	}
	if body.Manifest == nil {
		s.badRequest(w, r, fmt.Errorf("manifest is required"))
		return
	}
	m, err := s.svc.Create(r.Context(), body.Manifest, body.Author)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(EventCreated, m)
	s.writeJSON(w, http.StatusCreated, m)
}

func (s *Server) getManifest(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) updateManifest(w http.ResponseWriter, r *http.Request) {
	var body updateRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, r, err)
		return
	}
	if body.Manifest == nil {
		s.badRequest(w, r, fmt.Errorf("manifest is required"))
		return
	}
	m, err := s.svc.Update(r.Context(), chi.URLParam(r, "id"), body.Manifest, body.ChangeNote, body.Author)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(EventUpdated, m)
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) deleteManifest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.streams.Broadcast(Event{Type: EventDeleted, ManifestID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := s.svc.ListVersions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, versions)
}

func (s *Server) getVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		s.badRequest(w, r, fmt.Errorf("invalid version: %w", err))
		return
	}
	m, err := s.svc.GetVersion(r.Context(), chi.URLParam(r, "id"), version)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) rollback(w http.ResponseWriter, r *http.Request) {
	var body rollbackRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, r, err)
		return
	}
	m, err := s.svc.Rollback(r.Context(), chi.URLParam(r, "id"), body.Version, body.Author)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(EventUpdated, m)
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	var body statusRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, r, err)
		return
	}
	m, err := s.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(EventStatus, m)
	s.writeJSON(w, http.StatusOK, m)
}

func (s *Server) diff(w http.ResponseWriter, r *http.Request) {
	a, errA := strconv.Atoi(r.URL.Query().Get("a"))
	b, errB := strconv.Atoi(r.URL.Query().Get("b"))
	if errA != nil || errB != nil {
		s.badRequest(w, r, fmt.Errorf("query parameters a and b must be version numbers"))
		return
	}
	changes, err := s.svc.Diff(r.Context(), chi.URLParam(r, "id"), a, b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if changes == nil {
		changes = []domain.Change{}
	}
	s.writeJSON(w, http.StatusOK, changes)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", chi.URLParam(r, "id")+".json"))
	_, _ = w.Write(data)
}

// importManifest accepts a JSON or YAML document, chosen by Content-Type.
func (s *Server) importManifest(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxImportBytes))
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	author := r.URL.Query().Get("author")

	var m *domain.Manifest
	if isYAML(r.Header.Get("Content-Type")) {
		m, err = s.svc.ImportYAML(r.Context(), data, author)
	} else {
		m, err = s.svc.Import(r.Context(), data, author)
	}
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			s.badRequest(w, r, err)
			return
		}
		s.writeError(w, r, err)
		return
	}
	s.publish(EventCreated, m)
	s.writeJSON(w, http.StatusCreated, m)
}

func (s *Server) saveTemplate(w http.ResponseWriter, r *http.Request) {
	var body templateRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, r, err)
		return
	}
	t, err := s.svc.SaveAsTemplate(r.Context(), chi.URLParam(r, "id"), body.Name, body.Description)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, t)
}

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListTemplates(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []*domain.Template{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) instantiate(w http.ResponseWriter, r *http.Request) {
	var body instantiateRequest
	if err := decode(r, &body); err != nil {
		s.badRequest(w, r, err)
		return
	}
	m, err := s.svc.CreateFromTemplate(r.Context(), chi.URLParam(r, "id"), body.Name, body.Author)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.publish(EventCreated, m)
	s.writeJSON(w, http.StatusCreated, m)
}

func (s *Server) publish(t EventType, m *domain.Manifest) {
	s.streams.Broadcast(Event{
		Type:       t,
		ManifestID: m.ID,
		Version:    m.VersionInfo.Version,
		Status:     m.VersionInfo.Status,
	})
}

func isYAML(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "yaml") || strings.Contains(ct, "yml")
}
