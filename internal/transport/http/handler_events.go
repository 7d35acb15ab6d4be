package httptransport

import (
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"poker-club/internal/broadcast"
)

var ssePingInterval = 15 * time.Second

// Events streams a table's events. Events after Last-Event-ID
// are replayed first; private events only reach the seat they belong to.
func (h *TableHandlers) Events(hub *broadcast.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := h.table(w, r)
		if !ok {
			return
		}
		tableID := c.ID()
		seat := viewer(r)
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteHTTPError(w, http.StatusInternalServerError, "stream_not_supported")
			return
		}

		metricSSEConnectionsTotal.Add(1)
		metricSSEConnectionsActive.Add(1)
		defer metricSSEConnectionsActive.Add(-1)

		buf := hub.Buffer(tableID)
		ch := buf.Subscribe()
		defer buf.Unsubscribe(ch)

		broadcast.SetSSEHeaders(w)
		log.Info().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("table_id", tableID).
			Int("seat", seat).
			Msg("sse stream opened")

		lastID := r.Header.Get("Last-Event-ID")
		if lastID == "" {
			lastID = r.URL.Query().Get("last_event_id")
		}
		sent := lastID
		for _, ev := range buf.ReplayAfter(lastID, seat) {
			if err := broadcast.WriteSSE(w, ev); err != nil {
				return
			}
			logSSEEvent(r, tableID, "replay", ev)
			sent = ev.EventID
		}
		flusher.Flush()

		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				log.Info().
					Str("request_id", chimw.GetReqID(r.Context())).
					Str("table_id", tableID).
					Err(r.Context().Err()).
					Msg("sse stream closed")
				return
			case ev, ok := <-ch:
				if !ok {
					log.Info().Str("table_id", tableID).Msg("sse stream channel closed")
					return
				}
				if !ev.VisibleTo(seat) || !after(ev.EventID, sent) {
					continue
				}
				if err := broadcast.WriteSSE(w, ev); err != nil {
					return
				}
				logSSEEvent(r, tableID, "live", ev)
				sent = ev.EventID
				flusher.Flush()
			case <-ticker.C:
				now := time.Now().UnixMilli()
				ping := broadcast.Event{Event: "ping", TableID: tableID, Seat: broadcast.Public, ServerTS: now, Data: map[string]any{"ts": now}}
				if err := broadcast.WriteSSE(w, ping); err != nil {
					return
				}
				logSSEEvent(r, tableID, "ping", ping)
				flusher.Flush()
			}
		}
	}
}

// after reports whether event id comes later than prev; ids are sequence
// numbers.
func after(id, prev string) bool {
	p, err := strconv.ParseUint(prev, 10, 64)
	if err != nil {
		return true
	}
	n, _ := strconv.ParseUint(id, 10, 64)
	return n > p
}

func logSSEEvent(r *http.Request, tableID, source string, ev broadcast.Event) {
	evt := log.Info()
	if ev.Event == "ping" {
		evt = log.Debug()
	}
	evt.
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("table_id", tableID).
		Str("event", ev.Event).
		Str("event_id", ev.EventID).
		Str("source", source).
		Int64("server_ts", ev.ServerTS).
		Msg("sse event sent")
}
