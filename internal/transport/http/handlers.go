package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/joshdurbin/tinylink/internal/domain"
	"github.com/joshdurbin/tinylink/internal/service"
)

// Version is reported by the health endpoint
const Version = "1.0"

const (
	maxBodyBytes  = 1 << 20
	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// Handler holds the HTTP handlers for the link store
type Handler struct {
	store     service.LinkStore
	serverURL string
}

// NewHandler creates a new HTTP handler
func NewHandler(store service.LinkStore, serverURL string) *Handler {
	return &Handler{
		store:     store,
		serverURL: serverURL,
	}
}

// CreateLink handles POST /api/links
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	logger := requestLogger(r)

	var req domain.CreateLinkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		logger.Debug().Err(err).Msg("Invalid JSON in create link request")
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL required")
		return
	}

	link, err := h.store.Create(r.Context(), req.Code, req.URL)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "Invalid code")
		case errors.Is(err, domain.ErrCodeConflict):
			writeError(w, http.StatusConflict, "Code exists")
		case errors.Is(err, domain.ErrGenerationExhausted):
			logger.Warn().Err(err).Msg("Code generation exhausted")
			writeError(w, http.StatusServiceUnavailable, "No free code, try again")
		default:
			logger.Error().Err(err).Str("code", req.Code).Msg("Failed to create link")
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

// ListLinks handles GET /api/links
func (h *Handler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.store.List(r.Context())
	if err != nil {
		requestLogger(r).Error().Err(err).Msg("Failed to list links")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if links == nil {
		links = []*domain.Link{}
	}
	writeJSON(w, http.StatusOK, links)
}

// GetLink handles GET /api/links/{code}
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	link, err := h.store.Get(r.Context(), code)
	if err != nil {
		h.writeLookupError(w, r, code, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

// DeleteLink handles DELETE /api/links/{code}
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	if err := h.store.Delete(r.Context(), code); err != nil {
		h.writeLookupError(w, r, code, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.DeleteLinkResponse{Success: true})
}

// LinkQR handles GET /api/links/{code}/qr, a PNG of the short URL
func (h *Handler) LinkQR(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < minQRSize || parsed > maxQRSize {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Size must be between %d and %d", minQRSize, maxQRSize))
			return
		}
		size = parsed
	}

	if _, err := h.store.Get(r.Context(), code); err != nil {
		h.writeLookupError(w, r, code, err)
		return
	}

	png, err := qrcode.Encode(h.shortURL(code), qrcode.Medium, size)
	if err != nil {
		requestLogger(r).Error().Err(err).Str("code", code).Msg("Failed to generate QR code")
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// Redirect handles GET /{code}
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	target, err := h.store.Resolve(r.Context(), code)
	if err != nil {
		if !domain.IsNotFound(err) {
			requestLogger(r).Error().Err(err).Str("code", code).Msg("Failed to resolve link")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	// The stored URL is used verbatim, so bypass http.Redirect's path cleaning.
	w.Header().Set("Location", target)
	w.WriteHeader(http.StatusFound)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		requestLogger(r).Warn().Err(err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, domain.HealthResponse{OK: false, Version: Version})
		return
	}
	writeJSON(w, http.StatusOK, domain.HealthResponse{OK: true, Version: Version})
}

// Index serves the static front page
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexHTML)
}

func (h *Handler) shortURL(code string) string {
	return h.serverURL + "/" + code
}

func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, code string, err error) {
	if domain.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	requestLogger(r).Error().Err(err).Str("code", code).Msg("Link lookup failed")
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, domain.ErrorResponse{Error: message})
}
