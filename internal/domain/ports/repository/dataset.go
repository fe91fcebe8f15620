package repository

import (
	"context"

	"clinic-relay/internal/domain/model"
)

// DatasetStore persists the tenant dataset as a single unit. Load and
// Save move the whole document; Update runs one load-mutate-save cycle
// inside the store's critical section and persists nothing when fn
// returns an error.
//
// Implementations must serialize Update calls against each other and
// against Save, so concurrent cycles touching unrelated clinics cannot
// clobber each other's writes. Long-latency work (the generative call)
// belongs outside Update; fn should only apply mutations.
type DatasetStore interface {
	Load(ctx context.Context) (*model.Dataset, error)
	Save(ctx context.Context, ds *model.Dataset) error
	Update(ctx context.Context, fn func(ds *model.Dataset) error) error
}
