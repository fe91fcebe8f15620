// File: internal/infra/adapters/whatsapp/cloud_api.go
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"clinic-relay/internal/domain/ports/adapter"
)

var _ adapter.Deliverer = (*CloudAPISender)(nil)

// CloudAPISender delivers text messages through the WhatsApp Business
// Cloud API (graph.facebook.com/{version}/{phone_id}/messages).
type CloudAPISender struct {
	token   string
	phoneID string
	base    string // e.g., https://graph.facebook.com/v19.0
	client  *http.Client
}

func NewCloudAPISender(token, phoneID, base string) (*CloudAPISender, error) {
	if token == "" || phoneID == "" {
		return nil, errors.New("whatsapp token and phone id required")
	}
	if base == "" {
		base = "https://graph.facebook.com/v19.0"
	}
	return &CloudAPISender{
		token:   token,
		phoneID: phoneID,
		base:    base,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (s *CloudAPISender) Deliver(ctx context.Context, to, text string) error {
	if to == "" || text == "" {
		return errors.New("recipient and text cannot be empty")
	}

	body := struct {
		MessagingProduct string `json:"messaging_product"`
		To               string `json:"to"`
		Type             string `json:"type"`
		Text             struct {
			Body string `json:"body"`
		} `json:"text"`
	}{MessagingProduct: "whatsapp", To: to, Type: "text"}
	body.Text.Body = text

	b, _ := json.Marshal(body)
	url := fmt.Sprintf("%s/%s/messages", s.base, s.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp http %d: %s", resp.StatusCode, detail)
	}
	return nil
}
