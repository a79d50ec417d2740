package httphandler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ericfisherdev/mytaskpanel/internal/application"
)

// ActiveEvent is the data of an "active" server-sent event. ID is empty when
// nothing is selected.
type ActiveEvent struct {
	ID string `json:"id"`
}

// ProjectsEvent is the data of a "projects" server-sent event.
type ProjectsEvent struct {
	Count      int   `json:"count"`
	LastUpdate int64 `json:"lastUpdate"`
}

type sseEvent struct {
	name string
	data any
}

// Events streams selection and project-list changes as server-sent events.
// Each connection mounts its own watcher pair; both stop when the client
// disconnects.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	events := make(chan sseEvent, 8)
	send := func(e sseEvent) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	}

	active := application.NewActiveWatcher(h.selection, h.notifier, h.intervals.Active, func(id string) {
		send(sseEvent{name: "active", data: ActiveEvent{ID: id}})
	})
	list := application.NewListWatcher(h.projects, h.notifier, h.intervals.List, func(s application.ListSnapshot) {
		send(sseEvent{name: "projects", data: ProjectsEvent(s)})
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	initialActive := active.Start(ctx)
	defer active.Stop()
	initialList := list.Start(ctx)
	defer list.Stop()

	writeEvent(w, sseEvent{name: "active", data: ActiveEvent{ID: initialActive}})
	writeEvent(w, sseEvent{name: "projects", data: ProjectsEvent(initialList)})
	flusher.Flush()

	heartbeat := time.NewTicker(h.intervals.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e := <-events:
			writeEvent(w, e)
			flusher.Flush()
		case <-heartbeat.C:
			_, _ = fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, e sseEvent) {
	data, err := json.Marshal(e.data)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.name, data)
}
