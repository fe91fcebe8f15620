package model

import (
	"sort"
	"strings"

	"clinic-relay/internal/domain"
)

// UnknownClinicID is the sentinel returned when no clinic owns the
// inbound channel number.
const UnknownClinicID = "clinica_desconhecida"

// DefaultPrompt steers the generative backend when a clinic record
// carries no prompt of its own.
const DefaultPrompt = "Você é um assistente de uma clínica."

// Clinic is one tenant: a quota, a steering prompt and the set of
// patient conversations.
type Clinic struct {
	Name         string           `json:"nome"`
	Phone        string           `json:"telefone"`
	Prompt       string           `json:"prompt"`
	MonthlyLimit int              `json:"limite_mensal"`
	MessagesUsed int              `json:"mensagens_usadas"`
	Active       bool             `json:"ativo"`
	Chats        map[string]*Chat `json:"chats"`
}

func NewClinic(name, phone, prompt string, monthlyLimit int, active bool) (*Clinic, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(phone) == "" {
		return nil, domain.ErrInvalidArgument
	}
	if monthlyLimit <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Clinic{
		Name:         name,
		Phone:        phone,
		Prompt:       prompt,
		MonthlyLimit: monthlyLimit,
		Active:       active,
		Chats:        make(map[string]*Chat),
	}, nil
}

// Admit is the quota-gate predicate. It never mutates the clinic; the
// increment that crosses the limit is still allowed for a message that
// was already admitted.
func (c *Clinic) Admit() error {
	if !c.Active {
		return domain.ErrClinicInactive
	}
	if c.MessagesUsed >= c.MonthlyLimit {
		return domain.ErrQuotaExceeded
	}
	return nil
}

// RecordUsage counts one processed message. Call at most once per
// admitted message.
func (c *Clinic) RecordUsage() {
	c.MessagesUsed++
}

// Chat returns the conversation with a patient, creating it lazily.
func (c *Clinic) Chat(patientID string) *Chat {
	if c.Chats == nil {
		c.Chats = make(map[string]*Chat)
	}
	chat, ok := c.Chats[patientID]
	if !ok {
		chat = NewChat()
		c.Chats[patientID] = chat
	}
	return chat
}

// SystemPrompt returns the configured prompt or the default fallback.
func (c *Clinic) SystemPrompt() string {
	if strings.TrimSpace(c.Prompt) == "" {
		return DefaultPrompt
	}
	return c.Prompt
}

// Dataset is the root of all durable state: the full clinic mapping,
// loaded wholesale and saved wholesale.
type Dataset struct {
	Clinics map[string]*Clinic `json:"clinicas"`
}

func NewDataset() *Dataset {
	return &Dataset{Clinics: make(map[string]*Clinic)}
}

// Add registers a clinic under id. Duplicate ids and duplicate phone
// numbers are rejected at write time so resolution stays unambiguous.
func (d *Dataset) Add(id string, c *Clinic) error {
	if strings.TrimSpace(id) == "" {
		return domain.ErrInvalidArgument
	}
	if d.Clinics == nil {
		d.Clinics = make(map[string]*Clinic)
	}
	if _, ok := d.Clinics[id]; ok {
		return domain.ErrClinicExists
	}
	for _, existing := range d.Clinics {
		if existing.Phone == c.Phone {
			return domain.ErrPhoneInUse
		}
	}
	d.Clinics[id] = c
	return nil
}

// Clinic looks up a clinic by id.
func (d *Dataset) Clinic(id string) (*Clinic, bool) {
	c, ok := d.Clinics[id]
	return c, ok
}

// Resolve maps an inbound channel number to a clinic id, scanning in
// sorted-id order so resolution is deterministic even for datasets
// created outside the management API. Returns UnknownClinicID when no
// clinic owns the number.
func (d *Dataset) Resolve(phone string) string {
	ids := make([]string, 0, len(d.Clinics))
	for id := range d.Clinics {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if d.Clinics[id].Phone == phone {
			return id
		}
	}
	return UnknownClinicID
}

// History returns the retained log for (clinic, patient) in insertion
// order. Unknown clinic or patient yields an empty log, never an error.
func (d *Dataset) History(clinicID, patientID string) []Turn {
	c, ok := d.Clinics[clinicID]
	if !ok {
		return nil
	}
	chat, ok := c.Chats[patientID]
	if !ok {
		return nil
	}
	return chat.History()
}

// ResetUsage zeroes every clinic's counter and reports how many were
// touched. Nothing inside the relay calls this on its own; it exists
// for an external scheduler.
func (d *Dataset) ResetUsage() int {
	n := 0
	for _, c := range d.Clinics {
		if c.MessagesUsed != 0 {
			c.MessagesUsed = 0
			n++
		}
	}
	return n
}
