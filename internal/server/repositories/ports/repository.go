package ports

import "context"

// Repository stores the ordered sequence of allocated SSH ports. The order is
// the allocation order, so the last element is the most recently handed out
// port. Ports are not deduplicated by the store; the pool's allocation rule
// decides what gets appended.
type Repository interface {
	// LastAllocated returns the most recently appended port. ok is false when
	// the sequence is empty.
	LastAllocated(ctx context.Context) (port int, ok bool, err error)

	// Append records a newly allocated port at the end of the sequence.
	Append(ctx context.Context, port int) error

	// Remove deletes exactly one matching entry (the oldest one) from the
	// sequence. Returns common.ErrNotFound when no entry matches.
	Remove(ctx context.Context, port int) error

	// Used returns all allocated ports in allocation order.
	Used(ctx context.Context) ([]int, error)
}
