package http

import (
	"net/http"

	"lifedash/internal/ai"
)

type chatMessageRequest struct {
	History []ai.Message `json:"history"`
}

// The AI handlers answer 200 with a fallback text when the model fails.
// Only a failure to read the user's own data is an error response.

func (s *Server) handleAISummary(w http.ResponseWriter, r *http.Request) {
	ld, err := s.svc.Transfer.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": s.svc.AI.Summary(r.Context(), ld)})
}

func (s *Server) handleAIReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	start, end, err := req.resolve(s.now(), s.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ld, err := s.svc.Transfer.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"report": s.svc.AI.Report(r.Context(), ld, start, end)})
}

func (s *Server) handleChatInit(w http.ResponseWriter, r *http.Request) {
	ld, err := s.svc.Transfer.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: s.svc.AI.ChatInit(r.Context(), ld)})
}

func (s *Server) handleChatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ld, err := s.svc.Transfer.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	reply, err := s.svc.AI.ChatMessage(r.Context(), ld, req.History)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageBody{Message: reply})
}
