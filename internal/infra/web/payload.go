// File: internal/infra/web/payload.go
package web

import (
	"encoding/json"
	"errors"

	"clinic-relay/internal/domain"
	"clinic-relay/internal/usecase"
)

// errStatusOnly marks notifications that carry no user message (the
// Cloud API also posts delivery status updates to the same webhook).
var errStatusOnly = errors.New("status-only notification")

// webhookPayload mirrors the WhatsApp Business Cloud API notification
// shape, limited to the fields the relay consumes.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
				} `json:"metadata"`
				Messages []struct {
					From      string `json:"from"`
					Timestamp string `json:"timestamp"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
				Statuses []json.RawMessage `json:"statuses"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// extractInbound pulls sender, text, recipient number and timestamp out
// of the first entry/change. Missing required fields reject the payload
// instead of surfacing a parse panic downstream. Timestamp is optional,
// matching the upstream contract.
func extractInbound(body []byte) (usecase.InboundMessage, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return usecase.InboundMessage{}, domain.ErrMalformedPayload
	}
	if len(p.Entry) == 0 || len(p.Entry[0].Changes) == 0 {
		return usecase.InboundMessage{}, domain.ErrMalformedPayload
	}
	value := p.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		if len(value.Statuses) > 0 {
			return usecase.InboundMessage{}, errStatusOnly
		}
		return usecase.InboundMessage{}, domain.ErrMalformedPayload
	}
	msg := value.Messages[0]
	if msg.From == "" || msg.Text == nil || msg.Text.Body == "" || value.Metadata.DisplayPhoneNumber == "" {
		return usecase.InboundMessage{}, domain.ErrMalformedPayload
	}
	return usecase.InboundMessage{
		ClinicPhone: value.Metadata.DisplayPhoneNumber,
		PatientID:   msg.From,
		Text:        msg.Text.Body,
		Timestamp:   msg.Timestamp,
	}, nil
}
