package http

import (
	"net/http"

	"lifedash/internal/core"
)

type routineBody struct {
	WeeklyRoutine core.WeeklyRoutine `json:"weeklyRoutine"`
}

func (s *Server) handleGetRoutine(w http.ResponseWriter, r *http.Request) {
	routine, err := s.svc.Routine.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routineBody{WeeklyRoutine: routine})
}

func (s *Server) handleSaveRoutine(w http.ResponseWriter, r *http.Request) {
	var req routineBody
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.svc.Routine.Save(r.Context(), req.WeeklyRoutine)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routineBody{WeeklyRoutine: saved})
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := s.readBody(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := s.svc.Transfer.Import(r.Context(), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ld, err := s.svc.Transfer.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="lifedash-export.json"`)
	writeJSON(w, http.StatusOK, ld)
}
