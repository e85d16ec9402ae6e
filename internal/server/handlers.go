package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"mindforge/internal/engine"
	"mindforge/internal/llmclient"
	"mindforge/internal/mindmap"
	"mindforge/internal/prompt"
	"mindforge/internal/provider"
	"mindforge/internal/storage"
)

// Handler is the thin JSON surface over the engine. Auth and sessions live
// in front of this service; the only credential handling here is passing
// the X-Provider-Key header through to the engine untouched.
type Handler struct {
	engine *engine.Engine
}

func NewHandler(e *engine.Engine) *Handler {
	return &Handler{engine: e}
}

func NewMux(h *Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/mindmaps/generate", h.handleGenerate)
	mux.HandleFunc("POST /api/mindmaps/{id}/expand", h.handleExpand)
	mux.HandleFunc("POST /api/mindmaps/{id}/regenerate", h.handleRegenerate)
	mux.HandleFunc("POST /api/mindmaps/summarize", h.handleSummarize)
	return CORS(mux)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req engine.GenerateRequest
	if !decode(w, r, &req) {
		return
	}
	req.Credential = r.Header.Get("X-Provider-Key")
	m, err := h.engine.Generate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) handleExpand(w http.ResponseWriter, r *http.Request) {
	var req engine.ExpansionRequest
	if !decode(w, r, &req) {
		return
	}
	req.Credential = r.Header.Get("X-Provider-Key")
	res, err := h.engine.ExpandNode(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleRegenerate(w http.ResponseWriter, r *http.Request) {
	var req engine.RegenerationRequest
	if !decode(w, r, &req) {
		return
	}
	req.Credential = r.Header.Get("X-Provider-Key")
	res, err := h.engine.RegenerateNode(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req engine.SummarizationRequest
	if !decode(w, r, &req) {
		return
	}
	req.Credential = r.Header.Get("X-Provider-Key")
	res, err := h.engine.Summarize(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine error kinds onto transport status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var (
		unknownProvider *provider.UnknownProviderError
		unsupportedCplx *prompt.UnsupportedComplexityError
		parseErr        *mindmap.ParseError
		upstream        *llmclient.UpstreamError
	)
	switch {
	case errors.Is(err, engine.ErrValidation),
		errors.Is(err, engine.ErrConfiguration),
		errors.Is(err, prompt.ErrUnknownTemplate),
		errors.As(err, &unknownProvider),
		errors.As(err, &unsupportedCplx):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrVersionConflict):
		status = http.StatusConflict
	case errors.Is(err, provider.ErrNoProvidersAvailable):
		status = http.StatusServiceUnavailable
	case errors.As(err, &parseErr), errors.As(err, &upstream):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
