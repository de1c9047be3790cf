package transport

import (
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/brizzai/recall/internal/callback"
	"github.com/brizzai/recall/internal/logger"
	"github.com/brizzai/recall/internal/relay"
	"go.uber.org/zap"
)

const maxMessageBytes = 64 << 10

var callbackPage = template.Must(template.New("callback").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>recall</title></head>
<body>{{if .Error}}<p>Sign-in failed: {{.Error}}</p>{{else}}<p>Signed in. You can close this tab.</p>{{end}}</body>
</html>
`))

// handleMessage decodes one relay message and writes the relay's reply.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err.Error())
		return
	}

	var msg relay.Message
	if err := json.Unmarshal(body, &msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, s.handler.Handle(r.Context(), msg))
}

// handleCallback captures a provider redirect that landed on the relay itself
// and relays it like a page-context notification would.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	res, err := callback.Detect(r.URL.String())
	switch {
	case errors.Is(err, callback.ErrNotCallback):
		writeError(w, http.StatusBadRequest, "not_callback", "request carries neither code nor error")
		return
	case errors.Is(err, callback.ErrMissingParams):
		logger.Info("Callback without code/state", zap.String("path", r.URL.Path))
		writeError(w, http.StatusBadRequest, "invalid_request", "code and state are required")
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	resp := s.handler.Handle(r.Context(), res.Message(nil))
	if !resp.Succeeded() {
		writeError(w, http.StatusBadRequest, "rejected", resp.ErrorMessage())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := callbackPage.Execute(w, res); err != nil {
		logger.Error("Failed to render callback page", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"listeners": s.hub.Count(""),
	})
}
