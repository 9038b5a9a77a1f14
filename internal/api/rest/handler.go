package rest

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/omarshaarawi/flagcoach/internal/models"
	"github.com/omarshaarawi/flagcoach/internal/rotation"
	"github.com/omarshaarawi/flagcoach/internal/service"
)

const maxSnapshotBytes = 1 << 20

// Handler exposes the rotation snapshot over HTTP so a coach can back it up
// or restore it from a browser or script.
type Handler struct {
	rotationService *service.RotationService
}

func NewHandler(rotationService *service.RotationService) *Handler {
	return &Handler{rotationService: rotationService}
}

// NewRouter returns a chi router with the standard middleware stack and the
// handler's routes mounted.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", h.exportSnapshot)
		r.Put("/snapshot", h.importSnapshot)
		r.Get("/roster", h.roster)
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) exportSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := h.rotationService.Export()
	if err != nil {
		slog.Error("Failed to export snapshot", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="flagcoach.json"`)
	_, _ = w.Write(data)
}

func (h *Handler) importSnapshot(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSnapshotBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "snapshot too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "could not read snapshot", http.StatusBadRequest)
		return
	}
	if err := h.rotationService.Import(data); err != nil {
		var verr *rotation.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("Failed to import snapshot", "error", err)
		http.Error(w, "import failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rosterEntry struct {
	ID      string                `json:"id"`
	Name    string                `json:"name"`
	Active  bool                  `json:"active"`
	Sits    int                   `json:"sits"`
	Captain int                   `json:"captain"`
	Pos     map[models.RoleID]int `json:"pos"`
	Blocked []models.RoleID       `json:"blocked,omitempty"`
}

func (h *Handler) roster(w http.ResponseWriter, r *http.Request) {
	players := h.rotationService.Players()
	out := make([]rosterEntry, len(players))
	for i, p := range players {
		out[i] = rosterEntry{
			ID:      p.ID,
			Name:    p.Name,
			Active:  p.Active,
			Sits:    p.Sits,
			Captain: p.Captain,
			Pos:     p.Pos,
			Blocked: p.Blocked,
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		slog.Error("Failed to write roster", "error", err)
	}
}
