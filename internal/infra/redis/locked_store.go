// File: internal/infra/redis/locked_store.go
package redis

import (
	"context"
	"time"

	"clinic-relay/internal/domain"
	"clinic-relay/internal/domain/model"
	"clinic-relay/internal/domain/ports/repository"
)

const datasetLockKey = "lock:dataset"

var _ repository.DatasetStore = (*LockedStore)(nil)

// LockedStore extends a DatasetStore's critical section across
// processes that share the same durable dataset. Reads pass through;
// Save and Update take the distributed lock first.
type LockedStore struct {
	inner  repository.DatasetStore
	locker Locker
	ttl    time.Duration
}

func NewLockedStore(inner repository.DatasetStore, locker Locker, ttl time.Duration) *LockedStore {
	return &LockedStore{inner: inner, locker: locker, ttl: ttl}
}

func (s *LockedStore) Load(ctx context.Context) (*model.Dataset, error) {
	return s.inner.Load(ctx)
}

func (s *LockedStore) Save(ctx context.Context, ds *model.Dataset) error {
	token, err := s.locker.TryLock(ctx, datasetLockKey, s.ttl)
	if err != nil {
		return domain.Storage("lock", err)
	}
	defer func() { _ = s.locker.Unlock(ctx, datasetLockKey, token) }()
	return s.inner.Save(ctx, ds)
}

func (s *LockedStore) Update(ctx context.Context, fn func(ds *model.Dataset) error) error {
	token, err := s.locker.TryLock(ctx, datasetLockKey, s.ttl)
	if err != nil {
		return domain.Storage("lock", err)
	}
	defer func() { _ = s.locker.Unlock(ctx, datasetLockKey, token) }()
	return s.inner.Update(ctx, fn)
}
