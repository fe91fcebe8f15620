// File: internal/usecase/relay_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"clinic-relay/internal/domain"
	"clinic-relay/internal/domain/model"
	"clinic-relay/internal/domain/ports/adapter"
	"clinic-relay/internal/domain/ports/repository"
	"clinic-relay/internal/infra/logging"
	"clinic-relay/internal/infra/metrics"
)

// Compile-time check
var _ RelayUseCase = (*relayUC)(nil)

// InboundMessage is one webhook message after payload extraction.
type InboundMessage struct {
	ClinicPhone string // recipient display phone number
	PatientID   string // sender id
	Text        string
	Timestamp   string
}

// Reply is the processed outcome handed back for the webhook response.
type Reply struct {
	ClinicID  string
	Text      string
	Delivered bool
}

type RelayUseCase interface {
	HandleInbound(ctx context.Context, msg InboundMessage) (*Reply, error)
}

type relayUC struct {
	store     repository.DatasetStore
	responder adapter.Responder
	deliverer adapter.Deliverer
	aiTimeout time.Duration
	log       *zerolog.Logger
}

func NewRelayUseCase(store repository.DatasetStore, responder adapter.Responder, deliverer adapter.Deliverer, aiTimeout time.Duration, logger *zerolog.Logger) *relayUC {
	return &relayUC{
		store:     store,
		responder: responder,
		deliverer: deliverer,
		aiTimeout: aiTimeout,
		log:       logger,
	}
}

// HandleInbound processes one message end-to-end: resolve the clinic,
// check admission, hand the prior history plus the new message to the
// responder, then commit both turns, the chat metadata and the quota
// increment in a single store cycle. The responder runs outside any
// store critical section; if it fails, nothing is committed.
func (u *relayUC) HandleInbound(ctx context.Context, msg InboundMessage) (*Reply, error) {
	if strings.TrimSpace(msg.Text) == "" || msg.PatientID == "" || msg.ClinicPhone == "" {
		return nil, domain.ErrInvalidArgument
	}

	ds, err := u.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	clinicID := ds.Resolve(msg.ClinicPhone)
	if clinicID == model.UnknownClinicID {
		return nil, domain.ErrClinicNotFound
	}
	ctx = logging.WithClinicID(ctx, clinicID)
	ctx = logging.WithPatientID(ctx, msg.PatientID)
	log := logging.With(ctx, u.log)
	defer logging.TraceDuration(log, "RelayUC.HandleInbound")()

	clinic, _ := ds.Clinic(clinicID)
	if err := clinic.Admit(); err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.QuotaBlocked(clinicID)
		}
		log.Warn().Err(err).Msg("message rejected")
		return nil, err
	}

	// Prior history only; the new user turn is appended at commit time
	// so the prompt handed to the backend never contains it twice.
	history := ds.History(clinicID, msg.PatientID)

	cctx, cancel := context.WithTimeout(ctx, u.aiTimeout)
	defer cancel()
	start := time.Now()
	reply, err := u.responder.Generate(cctx, clinic.SystemPrompt(), history, msg.Text)
	metrics.ObserveResponderCall(u.responder.Name(), time.Since(start).Milliseconds(), err == nil)
	if err != nil {
		log.Error().Err(err).Str("provider", u.responder.Name()).Msg("responder call failed")
		return nil, domain.Collaborator("generate", err)
	}

	// Single critical section: re-resolve against fresh state, re-check
	// admission, then apply every mutation or none.
	err = u.store.Update(ctx, func(fresh *model.Dataset) error {
		id := fresh.Resolve(msg.ClinicPhone)
		if id == model.UnknownClinicID {
			return domain.ErrClinicNotFound
		}
		c, _ := fresh.Clinic(id)
		if err := c.Admit(); err != nil {
			return err
		}
		chat := c.Chat(msg.PatientID)
		chat.Append(model.Turn{Role: model.RoleUser, Content: msg.Text})
		chat.Append(model.Turn{Role: model.RoleAssistant, Content: reply})
		chat.Touch(msg.Text, msg.Timestamp)
		c.RecordUsage()
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &Reply{ClinicID: clinicID, Text: reply}
	if u.deliverer == nil {
		metrics.IncDelivery("skipped")
		return out, nil
	}
	// Delivery is fire-and-forget for the exchange (already committed),
	// but its failure stays observable to the caller.
	if err := u.deliverer.Deliver(ctx, msg.PatientID, reply); err != nil {
		metrics.IncDelivery("failed")
		log.Error().Err(err).Msg("delivery failed")
		return out, nil
	}
	metrics.IncDelivery("ok")
	out.Delivered = true
	return out, nil
}
