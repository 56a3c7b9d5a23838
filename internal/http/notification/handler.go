package notification

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/caiwu/internal/http/api"
	"github.com/MrJamesThe3rd/caiwu/internal/notification"
)

type Handler struct {
	svc *notification.Service
	now func() time.Time
}

func NewHandler(svc *notification.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/unread-count", h.unreadCount)
	r.Post("/read-all", h.markAllRead)
	r.Post("/generate", h.generate)
	r.Get("/settings", h.settings)
	r.Put("/settings", h.updateSettings)
	r.Post("/{id}/read", h.markRead)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := api.NewQuery(r)
	unreadOnly := q.Bool("unreadOnly")
	limit := q.Int("limit", notification.DefaultLimit)

	if err := q.Err(); err != nil {
		api.Error(w, r, err)
		return
	}

	items, err := h.svc.List(r.Context(), unreadOnly, limit)
	if err != nil {
		api.Error(w, r, err)
		return
	}

	resp := make([]notificationResponse, len(items))
	for i, n := range items {
		resp[i] = toNotificationResponse(n)
	}

	api.OK(w, resp)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadCount(r.Context())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, map[string]int{"count": n})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := api.ParseID(r, "id")
	if err != nil {
		api.Error(w, r, err)
		return
	}

	if err := h.svc.MarkRead(r.Context(), id); err != nil {
		api.Error(w, r, err)
		return
	}

	api.NoContent(w)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllRead(r.Context())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, map[string]int64{"updated": n})
}

func (h *Handler) settings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Settings(r.Context())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toSettingsResponse(s))
}

type settingsRequest struct {
	Enabled        bool `json:"enabled"`
	DaysBefore     int  `json:"daysBefore" validate:"gte=0,lte=60"`
	DueSoonEnabled bool `json:"dueSoonEnabled"`
	OverdueEnabled bool `json:"overdueEnabled"`
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.Error(w, r, err)
		return
	}

	s, err := h.svc.UpdateSettings(r.Context(), notification.Settings{
		Enabled:        req.Enabled,
		DaysBefore:     req.DaysBefore,
		DueSoonEnabled: req.DueSoonEnabled,
		OverdueEnabled: req.OverdueEnabled,
	})
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toSettingsResponse(s))
}

// generate runs a reminder pass on demand, outside the schedule.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GenerateReminders(r.Context(), h.now())
	if err != nil {
		api.Error(w, r, err)
		return
	}

	api.OK(w, toRunResponse(run))
}
