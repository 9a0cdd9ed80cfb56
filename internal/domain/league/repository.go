package league

import "context"

// Repository persists the registry as one whole document. Load on an
// empty backing store returns an empty state, not an error.
type Repository interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
}
