package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/pmello/settlers-backend/internal/engine"
	"github.com/pmello/settlers-backend/internal/hub"
)

// CreateRoom allocates a room and returns its join code. The creator
// still joins over the websocket with join_room.
func CreateRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.CreateResult, 1)
		h.Inbox() <- hub.CreateRoom{Reply: reply}
		res := <-reply
		if res.Room == nil {
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			Code string `json:"code"`
		}{Code: res.Code})
	}
}

// ListMaps returns the available map presets.
func ListMaps(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(struct {
		Maps []engine.MapInfo `json:"maps"`
	}{Maps: engine.ListMaps()})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
