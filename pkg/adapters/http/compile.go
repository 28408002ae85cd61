package http

import (
	"fmt"
	"net/http"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/go-chi/chi/v5"
)

type validateResponse struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

type runRequest struct {
	State map[string]any `json:"state,omitempty"`
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	var m domain.Manifest
	if err := decode(r, &m); err != nil {
		s.badRequest(w, r, err)
		return
	}
	errs, warnings := s.svc.Validate(&m)
	s.writeJSON(w, http.StatusOK, validateResponse{
		Valid:    len(errs) == 0,
		Errors:   orEmpty(errs),
		Warnings: orEmpty(warnings),
	})
}

// compileManifest compiles a manifest sent in the body. The graph is cached
// under the manifest id like any other compilation.
func (s *Server) compileManifest(w http.ResponseWriter, r *http.Request) {
	var m domain.Manifest
	if err := decode(r, &m); err != nil {
		s.badRequest(w, r, err)
		return
	}
	s.writeCompile(w, s.svc.Compile(r.Context(), &m))
}

func (s *Server) compileByID(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.CompileByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.Success {
		s.streams.Broadcast(Event{Type: EventCompiled, ManifestID: res.ManifestID})
	}
	s.writeCompile(w, res)
}

func (s *Server) writeCompile(w http.ResponseWriter, res domain.CompileResult) {
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, res)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	var body runRequest
	if r.ContentLength != 0 {
		if err := decode(r, &body); err != nil {
			s.badRequest(w, r, err)
			return
		}
	}
	res := s.svc.Run(r.Context(), chi.URLParam(r, "id"), body.State)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, res)
}

func (s *Server) schema(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.svc.Schema(m))
}

// graph returns the manifest as a Mermaid flowchart.
func (s *Server) graph(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, s.svc.Mermaid(m))
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
