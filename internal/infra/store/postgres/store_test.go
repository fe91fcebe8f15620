//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"

	"clinic-relay/internal/domain/model"
)

func TestStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	store, err := NewStore(ctx, testPool)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	seed := func(t *testing.T) {
		cleanup(t)
		ds := model.NewDataset()
		c, err := model.NewClinic("Clínica Sorriso", "5511999990000", "Atenda com cordialidade.", 100, true)
		if err != nil {
			t.Fatalf("clinic fixture: %v", err)
		}
		chat := c.Chat("5511888880000")
		chat.Append(model.Turn{Role: model.RoleUser, Content: "Olá"})
		chat.Append(model.Turn{Role: model.RoleAssistant, Content: "Oi!"})
		chat.Touch("Olá", "1700000000")
		if err := ds.Add("c1", c); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := store.Save(ctx, ds); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	t.Run("should round-trip the dataset", func(t *testing.T) {
		seed(t)

		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		c, ok := got.Clinic("c1")
		if !ok {
			t.Fatal("clinic missing after round trip")
		}
		if c.Name != "Clínica Sorriso" || c.MonthlyLimit != 100 {
			t.Errorf("unexpected clinic: %+v", c)
		}
		his := got.History("c1", "5511888880000")
		if len(his) != 2 || his[0].Content != "Olá" {
			t.Errorf("unexpected history: %+v", his)
		}
	})

	t.Run("should discard a failed update", func(t *testing.T) {
		seed(t)

		boom := errors.New("validation failed")
		err := store.Update(ctx, func(ds *model.Dataset) error {
			ds.Clinics["c1"].MessagesUsed = 999
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("expected fn error surfaced, got %v", err)
		}

		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if got.Clinics["c1"].MessagesUsed != 0 {
			t.Error("rolled-back update must not persist")
		}
	})

	t.Run("should serialize concurrent updates", func(t *testing.T) {
		seed(t)

		const workers = 8
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Update(ctx, func(ds *model.Dataset) error {
					ds.Clinics["c1"].RecordUsage()
					return nil
				})
				if err != nil {
					t.Errorf("update: %v", err)
				}
			}()
		}
		wg.Wait()

		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if used := got.Clinics["c1"].MessagesUsed; used != workers {
			t.Errorf("expected %d recorded messages, got %d", workers, used)
		}
	})

	t.Run("should prune clinics removed from the dataset", func(t *testing.T) {
		seed(t)

		err := store.Update(ctx, func(ds *model.Dataset) error {
			delete(ds.Clinics, "c1")
			return nil
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		got, err := store.Load(ctx)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if len(got.Clinics) != 0 {
			t.Errorf("expected empty dataset, got %d clinics", len(got.Clinics))
		}
	})
}
