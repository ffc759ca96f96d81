package api

import (
	"net/http"
	"strconv"

	"beacon/internal/events"
)

// EventsHandler handles activity log endpoints
type EventsHandler struct {
	store *events.Store
}

// NewEventsHandler creates new events handler
func NewEventsHandler(store *events.Store) *EventsHandler {
	return &EventsHandler{store: store}
}

// List returns activity entries
// GET /api/events?limit=50&since=123
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"events": []events.Activity{},
			"lastId": 0,
		})
		return
	}

	if sinceStr := r.URL.Query().Get("since"); sinceStr != "" {
		sinceID, err := strconv.ParseInt(sinceStr, 10, 64)
		if err == nil {
			writeJSON(w, http.StatusOK, map[string]interface{}{
				"events": nonNil(h.store.GetSince(sinceID)),
				"lastId": h.store.LastID(),
			})
			return
		}
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events": h.store.GetLast(limit),
		"lastId": h.store.LastID(),
	})
}

func nonNil(list []events.Activity) []events.Activity {
	if list == nil {
		return []events.Activity{}
	}
	return list
}
