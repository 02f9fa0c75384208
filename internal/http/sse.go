package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hperssn/physiovr/internal/metrics"
	"github.com/hperssn/physiovr/internal/runner"
)

const heartbeatInterval = 15 * time.Second

func writeEvent(w http.ResponseWriter, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

// StreamSessionEvents sends the caller's current session followed by every
// transition until the client goes away or the session is closed.
func StreamSessionEvents(manager *runner.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			respondError(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		machine := manager.Get(GetUserID(r))
		events, release := machine.Subscribe()
		defer release()

		metrics.EventStreamsCurrent.Inc()
		defer metrics.EventStreamsCurrent.Dec()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		snapshot := eventDTO{Type: "snapshot", Session: toSessionDTO(machine.Snapshot())}
		if err := writeEvent(w, "snapshot", snapshot); err != nil {
			return
		}
		flusher.Flush()

		heartbeat := time.NewTicker(heartbeatInterval)
		defer heartbeat.Stop()

		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}

				payload := eventDTO{Type: ev.Type, Session: toSessionDTO(ev.Snapshot)}
				if err := writeEvent(w, string(ev.Type), payload); err != nil {
					return
				}
				flusher.Flush()

			case <-heartbeat.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				flusher.Flush()

			case <-r.Context().Done():
				return
			}
		}
	}
}
