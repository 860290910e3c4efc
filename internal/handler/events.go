package handler

import (
	"net/http"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

const (
	eventList   = "list"
	eventDetail = "detail"
)

// Events streams every state transition as server-sent events. The stream
// starts with the current value of both slots and ends when the client
// disconnects.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)
	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		lg.Warn("Streaming not supported", zap.Error(err))
		return
	}

	list := h.store.ListState().Watch(ctx)
	detail := h.store.DetailState().Watch(ctx)

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	lg.Debug("Event stream opened")
	defer lg.Debug("Event stream closed")

	for list != nil || detail != nil {
		var name string
		e.Reset()

		select {
		case s, ok := <-list:
			if !ok {
				list = nil
				continue
			}
			name = eventList
			encodeListState(e, s)
		case s, ok := <-detail:
			if !ok {
				detail = nil
				continue
			}
			name = eventDetail
			encodeDetailState(e, s)
		}

		if err := writeEvent(w, name, e.Bytes()); err != nil {
			lg.Debug("Event write failed", zap.Error(err))
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, data []byte) error {
	buf := make([]byte, 0, len(name)+len(data)+16)
	buf = append(buf, "event: "...)
	buf = append(buf, name...)
	buf = append(buf, "\ndata: "...)
	buf = append(buf, data...)
	buf = append(buf, "\n\n"...)
	_, err := w.Write(buf)
	return err
}
