package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lifedash/internal/schema"
)

// mountEntity registers the five CRUD routes of one collection.
func (s *Server) mountEntity(r chi.Router, sc *schema.Schema) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		docs, err := s.svc.Entities.List(r.Context(), sc)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if docs == nil {
			docs = []schema.Document{}
		}
		writeJSON(w, http.StatusOK, docs)
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		var doc schema.Document
		if err := s.decodeJSON(w, r, &doc); err != nil {
			writeError(w, r, err)
			return
		}
		created, err := s.svc.Entities.Create(r.Context(), sc, doc)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	})

	r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.svc.Entities.Get(r.Context(), sc, chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	})

	r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
		var partial schema.Document
		if err := s.decodeJSON(w, r, &partial); err != nil {
			writeError(w, r, err)
			return
		}
		updated, err := s.svc.Entities.Update(r.Context(), sc, chi.URLParam(r, "id"), partial)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	})

	r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.Entities.Delete(r.Context(), sc, chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
}
