package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vidmill/internal/domain"
	"vidmill/internal/port"
	"vidmill/internal/service"
)

type SSEHandler struct {
	eventBus  *service.EventBus
	lifecycle Lifecycle
}

func NewSSEHandler(eventBus *service.EventBus, lifecycle Lifecycle) *SSEHandler {
	return &SSEHandler{
		eventBus:  eventBus,
		lifecycle: lifecycle,
	}
}

// streamEvent is the JSON payload written on every SSE event. It pairs the
// notification with a fresh snapshot of the record so clients never have to
// issue a follow-up fetch.
type streamEvent struct {
	Type     port.EventType `json:"type"`
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Features []string       `json:"features,omitempty"`
	Job      jobResponse    `json:"job"`
}

// sseWrite writes an SSE event, handling multi-line data correctly.
func sseWrite(w http.ResponseWriter, eventName string, data string) {
	_, _ = fmt.Fprintf(w, "event: %s\n", eventName)
	for _, line := range strings.Split(data, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// sendKeepAlive writes an SSE comment to keep the connection active.
func sendKeepAlive(w http.ResponseWriter) {
	_, _ = fmt.Fprint(w, ": keep-alive\n\n")
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

func (h *SSEHandler) sendJobEvent(w http.ResponseWriter, job *domain.JobRecord, ev port.Event) {
	payload, err := json.Marshal(streamEvent{
		Type:     ev.Type,
		Status:   ev.Status,
		Message:  ev.Message,
		Features: ev.Features,
		Job:      toJobResponse(job),
	})
	if err != nil {
		return
	}
	sseWrite(w, string(ev.Type), string(payload))
}

// JobEvents streams status updates for a single job until it reaches a
// terminal state and the client disconnects.
func (h *SSEHandler) JobEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		caller := callerIdentity(r)

		job, err := h.lifecycle.Get(caller, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		sseHeaders(w)

		snapshot := port.Event{Type: port.EventTypeStatus, Status: string(job.Status)}
		h.sendJobEvent(w, job, snapshot)

		// Already terminal, nothing further will arrive.
		if job.Status.IsTerminal() {
			<-r.Context().Done()
			return
		}

		ch := h.eventBus.Subscribe(id)
		defer h.eventBus.Unsubscribe(id, ch)

		ctx := r.Context()
		keepAlive := time.NewTicker(15 * time.Second)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				sendKeepAlive(w)
			case event, ok := <-ch:
				if !ok {
					return
				}
				// Re-fetch for the full record state.
				job, err := h.lifecycle.Get(caller, id)
				if err != nil {
					return
				}
				h.sendJobEvent(w, job, event)

				if job.Status.IsTerminal() {
					<-ctx.Done()
					return
				}
			}
		}
	}
}

// AllEvents streams every job notification. Admin only.
func (h *SSEHandler) AllEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerIdentity(r)
		if !caller.IsAdmin() {
			writeJSONError(w, http.StatusForbidden, "admin access required")
			return
		}

		sseHeaders(w)

		ch := h.eventBus.SubscribeAll()
		defer h.eventBus.UnsubscribeAll(ch)

		ctx := r.Context()
		keepAlive := time.NewTicker(15 * time.Second)
		defer keepAlive.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				sendKeepAlive(w)
			case event, ok := <-ch:
				if !ok {
					return
				}
				job, err := h.lifecycle.Get(caller, event.JobID)
				if err != nil {
					continue
				}
				h.sendJobEvent(w, job, event.Event)
			}
		}
	}
}
