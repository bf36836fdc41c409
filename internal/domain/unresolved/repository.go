package unresolved

import "context"

type Repository interface {
	Insert(ctx context.Context, item *Event) error
	List(ctx context.Context, limit int) ([]Event, error)
	Delete(ctx context.Context, id string) error
	IncrementAttempts(ctx context.Context, id string) error
}
