package port

// EventType classifies notifications emitted during job execution.
type EventType string

const (
	EventTypeStatus    EventType = "status"
	EventTypeCompleted EventType = "completed"
	EventTypeError     EventType = "error"
)

// Event is the payload delivered to notification subscribers on each job
// transition. Completed events carry the applied-features summary.
type Event struct {
	Type     EventType `json:"type"`
	Status   string    `json:"status,omitempty"`
	Message  string    `json:"message,omitempty"`
	Features []string  `json:"features,omitempty"`
}

// Notifier is the optional notification hook. It is consumed by UI toast and
// log layers and is never required for correctness.
type Notifier interface {
	Notify(jobID string, event Event)
}
