package model

import (
	"strings"
	"time"
)

// WorkMoment is a single captured unit of effort.
type WorkMoment struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"user_id"`
	EffortText  string     `json:"effort_text"`
	ContextNote string     `json:"context_note,omitempty"`
	StateAfter  StateAfter `json:"state_after"`
	EnergyCost  EnergyCost `json:"energy_cost"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (m WorkMoment) CreatedTime() time.Time { return m.CreatedAt }

// MomentInput is the payload for creating a moment.
type MomentInput struct {
	EffortText  string     `json:"effort_text" validate:"required"`
	ContextNote string     `json:"context_note,omitempty"`
	StateAfter  StateAfter `json:"state_after" validate:"required,enum"`
	EnergyCost  EnergyCost `json:"energy_cost" validate:"required,enum"`
}

func (in *MomentInput) Validate() error {
	in.EffortText = strings.TrimSpace(in.EffortText)
	in.ContextNote = strings.TrimSpace(in.ContextNote)
	return validateStruct(in)
}

// MomentPatch is a partial moment update; nil fields are left alone.
type MomentPatch struct {
	EffortText  *string     `json:"effort_text,omitempty" validate:"omitempty,min=1"`
	ContextNote *string     `json:"context_note,omitempty"`
	StateAfter  *StateAfter `json:"state_after,omitempty" validate:"omitempty,enum"`
	EnergyCost  *EnergyCost `json:"energy_cost,omitempty" validate:"omitempty,enum"`
}

func (p *MomentPatch) Validate() error {
	trimPtr(p.EffortText)
	trimPtr(p.ContextNote)
	return validateStruct(p)
}

// Apply copies the set fields of p onto m.
func (p MomentPatch) Apply(m *WorkMoment) {
	if p.EffortText != nil {
		m.EffortText = *p.EffortText
	}
	if p.ContextNote != nil {
		m.ContextNote = *p.ContextNote
	}
	if p.StateAfter != nil {
		m.StateAfter = *p.StateAfter
	}
	if p.EnergyCost != nil {
		m.EnergyCost = *p.EnergyCost
	}
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
