package port

import "vidmill/internal/domain"

// Persistence is the durable-storage adapter behind the job store. The store
// loads the collection once at startup and writes the entire collection back
// after every mutation. Implementations only need to be safe for sequential,
// non-overlapping calls; the store serializes access.
type Persistence interface {
	LoadAll() ([]*domain.JobRecord, error)
	SaveAll(jobs []*domain.JobRecord) error
}
