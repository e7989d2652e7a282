package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/qclickin/platform/services/webhook-service/internal/storage"
)

var knownEvents = map[string]bool{
	"booking.created.v1":     true,
	"booking.confirmed.v1":   true,
	"booking.rejected.v1":    true,
	"booking.cancelled.v1":   true,
	"booking.rescheduled.v1": true,
}

type Handler struct {
	repo *storage.Repository
}

func New(repo *storage.Repository) *Handler {
	return &Handler{repo: repo}
}

type webhookRequest struct {
	URL    *string  `json:"url"`
	Secret *string  `json:"secret"`
	Events []string `json:"events"`
	Active *bool    `json:"active"`
}

type webhookResponse struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Secret    string   `json:"secret"`
	Events    []string `json:"events"`
	Active    bool     `json:"active"`
	CreatedAt string   `json:"created_at"`
}

func webhookView(wh storage.Webhook) webhookResponse {
	return webhookResponse{
		ID:        wh.ID,
		URL:       wh.URL,
		Secret:    wh.Secret,
		Events:    wh.Events,
		Active:    wh.Active,
		CreatedAt: wh.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == nil || !validEndpointURL(*req.URL) {
		http.Error(w, "url must be a valid http(s) endpoint", http.StatusBadRequest)
		return
	}
	events, err := normalizeEvents(req.Events)
	if err != "" {
		http.Error(w, err, http.StatusBadRequest)
		return
	}

	secret := ""
	if req.Secret != nil {
		secret = strings.TrimSpace(*req.Secret)
	}
	if secret == "" {
		secret = newSecret()
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	wh := storage.Webhook{
		UserID: userID,
		URL:    *req.URL,
		Secret: secret,
		Events: events,
		Active: active,
	}
	if err := h.repo.Create(r.Context(), &wh); err != nil {
		http.Error(w, "failed to create webhook", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, webhookView(wh))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	hooks, err := h.repo.ListByUser(r.Context(), userID)
	if err != nil {
		http.Error(w, "failed to list webhooks", http.StatusInternalServerError)
		return
	}
	views := make([]webhookResponse, 0, len(hooks))
	for _, wh := range hooks {
		views = append(views, webhookView(wh))
	}
	writeJSON(w, http.StatusOK, map[string]any{"webhooks": views})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	wh, err := h.repo.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "webhook not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load webhook", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, webhookView(wh))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	upd := storage.WebhookUpdate{Active: req.Active}
	if req.URL != nil {
		if !validEndpointURL(*req.URL) {
			http.Error(w, "url must be a valid http(s) endpoint", http.StatusBadRequest)
			return
		}
		upd.URL = req.URL
	}
	if req.Secret != nil {
		secret := strings.TrimSpace(*req.Secret)
		if secret == "" {
			http.Error(w, "secret cannot be empty", http.StatusBadRequest)
			return
		}
		upd.Secret = &secret
	}
	if req.Events != nil {
		events, errMsg := normalizeEvents(req.Events)
		if errMsg != "" {
			http.Error(w, errMsg, http.StatusBadRequest)
			return
		}
		upd.Events = events
	}

	wh, err := h.repo.Update(r.Context(), r.PathValue("id"), userID, upd)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "webhook not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to update webhook", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, webhookView(wh))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := h.repo.Delete(r.Context(), r.PathValue("id"), userID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "webhook not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to delete webhook", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deliveryResponse struct {
	ID          int64           `json:"id"`
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	Payload     json.RawMessage `json:"payload"`
	Status      string          `json:"status"`
	Attempts    int             `json:"attempts"`
	StatusCode  int             `json:"status_code"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   string          `json:"created_at"`
	DeliveredAt string          `json:"delivered_at,omitempty"`
}

func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	wh, err := h.repo.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "webhook not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load webhook", http.StatusInternalServerError)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	deliveries, err := h.repo.ListDeliveries(r.Context(), wh.ID, limit)
	if err != nil {
		http.Error(w, "failed to list deliveries", http.StatusInternalServerError)
		return
	}
	views := make([]deliveryResponse, 0, len(deliveries))
	for _, d := range deliveries {
		view := deliveryResponse{
			ID:         d.ID,
			EventID:    d.EventID,
			EventType:  d.EventType,
			Payload:    d.Payload,
			Status:     d.Status,
			Attempts:   d.Attempts,
			StatusCode: d.StatusCode,
			LastError:  d.LastError,
			CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339),
		}
		if d.DeliveredAt != nil {
			view.DeliveredAt = d.DeliveredAt.UTC().Format(time.RFC3339)
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliveries": views})
}

// Test queues a ping delivery so users can verify their endpoint and secret.
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromHeader(r)
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	wh, err := h.repo.Get(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "webhook not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load webhook", http.StatusInternalServerError)
		return
	}

	eventID := uuid.NewString()
	payload, _ := json.Marshal(map[string]string{
		"webhook_id":   wh.ID,
		"triggered_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err := h.repo.EnqueueDirect(r.Context(), wh.ID, eventID, "webhook.test.v1", payload); err != nil {
		http.Error(w, "failed to queue test delivery", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"event_id": eventID})
}

func normalizeEvents(raw []string) ([]string, string) {
	if len(raw) == 0 {
		return nil, "at least one event is required"
	}
	seen := map[string]bool{}
	var events []string
	for _, e := range raw {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		if !knownEvents[e] {
			return nil, "unknown event type: " + e
		}
		seen[e] = true
		events = append(events, e)
	}
	if len(events) == 0 {
		return nil, "at least one event is required"
	}
	return events, ""
}

func validEndpointURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func newSecret() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return "whsec_" + hex.EncodeToString(buf)
}

func userIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
