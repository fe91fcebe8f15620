// File: internal/usecase/clinic_uc.go
package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"clinic-relay/internal/domain/model"
	"clinic-relay/internal/domain/ports/repository"
)

// Compile-time check
var _ ClinicUseCase = (*clinicUC)(nil)

type ClinicUseCase interface {
	Create(ctx context.Context, id string, in CreateClinicInput) error
	List(ctx context.Context) (map[string]*model.Clinic, error)
	ResetUsage(ctx context.Context) (int, error)
}

// CreateClinicInput mirrors the management surface's create payload.
// Active defaults to true when the caller omits it.
type CreateClinicInput struct {
	Name         string
	Phone        string
	Prompt       string
	MonthlyLimit int
	Active       *bool
}

type clinicUC struct {
	store repository.DatasetStore
	log   *zerolog.Logger
}

func NewClinicUseCase(store repository.DatasetStore, logger *zerolog.Logger) *clinicUC {
	return &clinicUC{store: store, log: logger}
}

func (c *clinicUC) Create(ctx context.Context, id string, in CreateClinicInput) error {
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	clinic, err := model.NewClinic(in.Name, in.Phone, in.Prompt, in.MonthlyLimit, active)
	if err != nil {
		return err
	}
	if err := c.store.Update(ctx, func(ds *model.Dataset) error {
		return ds.Add(id, clinic)
	}); err != nil {
		return err
	}
	c.log.Info().Str("clinic_id", id).Int("monthly_limit", in.MonthlyLimit).Msg("clinic created")
	return nil
}

func (c *clinicUC) List(ctx context.Context) (map[string]*model.Clinic, error) {
	ds, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Clinics, nil
}

// ResetUsage zeroes every clinic's monthly counter. The relay never
// calls this on its own; it exists for an external scheduler hitting
// the management API.
func (c *clinicUC) ResetUsage(ctx context.Context) (int, error) {
	n := 0
	if err := c.store.Update(ctx, func(ds *model.Dataset) error {
		n = ds.ResetUsage()
		return nil
	}); err != nil {
		return 0, err
	}
	c.log.Info().Int("clinics", n).Msg("monthly usage reset")
	return n, nil
}
