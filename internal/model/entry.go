package model

import (
	"strings"
	"time"
)

// WorkEntry is a longer structured work log record.
type WorkEntry struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	TimeSpent   *int      `json:"time_spent"`
	Outcome     Outcome   `json:"outcome"`
	Blockers    string    `json:"blockers,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (e WorkEntry) CreatedTime() time.Time { return e.CreatedAt }

// Minutes returns the time spent, treating a missing value as zero.
func (e WorkEntry) Minutes() int {
	if e.TimeSpent == nil {
		return 0
	}
	return *e.TimeSpent
}

// EntryInput is the payload for creating an entry.
type EntryInput struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description" validate:"required"`
	Category    Category `json:"category" validate:"required,enum"`
	TimeSpent   *int     `json:"timeSpent,omitempty" validate:"omitempty,gt=0"`
	Outcome     Outcome  `json:"outcome" validate:"required,enum"`
	Blockers    string   `json:"blockers,omitempty"`
}

func (in *EntryInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Blockers = strings.TrimSpace(in.Blockers)
	return validateStruct(in)
}

// EntryPatch is a partial entry update; nil fields are left alone.
type EntryPatch struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string   `json:"description,omitempty" validate:"omitempty,min=1"`
	Category    *Category `json:"category,omitempty" validate:"omitempty,enum"`
	TimeSpent   *int      `json:"timeSpent,omitempty" validate:"omitempty,gt=0"`
	Outcome     *Outcome  `json:"outcome,omitempty" validate:"omitempty,enum"`
	Blockers    *string   `json:"blockers,omitempty"`
}

func (p *EntryPatch) Validate() error {
	trimPtr(p.Title)
	trimPtr(p.Description)
	trimPtr(p.Blockers)
	return validateStruct(p)
}

// Apply copies the set fields of p onto e.
func (p EntryPatch) Apply(e *WorkEntry) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.TimeSpent != nil {
		v := *p.TimeSpent
		e.TimeSpent = &v
	}
	if p.Outcome != nil {
		e.Outcome = *p.Outcome
	}
	if p.Blockers != nil {
		e.Blockers = *p.Blockers
	}
}

// NormalizeTitle is the project identity used by stale-project detection:
// trimmed and case-folded.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
