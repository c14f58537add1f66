package devserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"noor-chat/internal/backend"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req backend.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "no message provided")
		return
	}

	ctx := r.Context()
	var findings Findings
	if req.WebSearch && s.searcher != nil {
		f, err := s.searcher.Gather(ctx, message)
		if err != nil {
			// answer anyway, from the model's own knowledge
			s.logger.Warn("web search failed", zap.Error(err))
		} else {
			findings = f
		}
	}

	reply, err := s.responder.Reply(ctx, Prompt{Message: message, SearchContext: findings.Context})
	if err != nil {
		s.logger.Error("responder failed", zap.String("responder", s.responder.Name()), zap.Error(err))
		writeError(w, http.StatusBadGateway, "the model could not be reached")
		return
	}
	if reply == "" {
		writeError(w, http.StatusInternalServerError, "no reply from the model")
		return
	}

	writeJSON(w, http.StatusOK, backend.ChatResponse{
		Response: reply,
		RawInfo:  findings.RawInfo,
	})
}
