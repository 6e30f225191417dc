package domain

import "context"

// DefaultUserID scopes working memory in this single-user deployment
const DefaultUserID = "default"

// WorkingMemory is the durable, cross-conversation store of things the
// assistant knows about the user. Each collection holds no duplicates
// (exact string match); insertion order is preserved for display.
type WorkingMemory struct {
	UserID      string   `json:"userId"`
	Facts       []string `json:"facts"`
	Preferences []string `json:"preferences"`
	Topics      []string `json:"topics"`
}

// NewWorkingMemory returns an empty-but-valid memory for the given user
func NewWorkingMemory(userID string) WorkingMemory {
	return WorkingMemory{
		UserID:      userID,
		Facts:       []string{},
		Preferences: []string{},
		Topics:      []string{},
	}
}

// IsEmpty reports whether all three collections are empty
func (m WorkingMemory) IsEmpty() bool {
	return len(m.Facts) == 0 && len(m.Preferences) == 0 && len(m.Topics) == 0
}

// MemoryDelta is a transient set of candidate new memory entries proposed by
// the extractor. It is never persisted; the store performs deduplication
// during merge.
type MemoryDelta struct {
	Facts       []string `json:"facts"`
	Preferences []string `json:"preferences"`
	Topics      []string `json:"topics"`
}

// IsEmpty reports whether the delta proposes nothing new
func (d MemoryDelta) IsEmpty() bool {
	return len(d.Facts) == 0 && len(d.Preferences) == 0 && len(d.Topics) == 0
}

// MemoryRepository defines the interface for working-memory storage
type MemoryRepository interface {
	// Read returns current memory or an empty-but-valid default. Never fails.
	Read(ctx context.Context) WorkingMemory

	// Merge unions the delta into stored memory and returns the new state.
	// Merging the same delta twice produces the same state as merging it once.
	Merge(ctx context.Context, delta MemoryDelta) (WorkingMemory, error)

	// Clear removes all working memory.
	Clear(ctx context.Context) error
}
