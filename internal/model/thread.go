package model

import (
	"strings"
	"time"
)

// Thread is a recurring line of effort composed of linked moments.
type Thread struct {
	ID            string       `json:"id"`
	OwnerID       string       `json:"user_id"`
	Name          string       `json:"name"`
	FirstSeen     time.Time    `json:"first_seen"`
	LastSeen      time.Time    `json:"last_seen"`
	Status        ThreadStatus `json:"status"`
	FrictionScore float64      `json:"friction_score"`
	CreatedAt     time.Time    `json:"created_at"`

	// Version is bumped on every write; updates are compare-and-set on it.
	Version int64 `json:"-"`
}

// ThreadMomentLink associates a moment with a thread. Unique per pair.
type ThreadMomentLink struct {
	ThreadID  string    `json:"thread_id"`
	MomentID  string    `json:"work_moment_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ThreadDetail is a thread with its linked moments, oldest first.
type ThreadDetail struct {
	Thread
	Moments []WorkMoment `json:"moments"`
}

// ThreadInput is the payload for creating a thread.
type ThreadInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	MomentID string `json:"moment_id,omitempty" validate:"omitempty,uuid"`
}

func (in *ThreadInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.MomentID = strings.TrimSpace(in.MomentID)
	return validateStruct(in)
}

// ThreadPatch renames a thread and/or changes its status.
type ThreadPatch struct {
	Name   *string       `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Status *ThreadStatus `json:"status,omitempty" validate:"omitempty,enum"`
}

func (p *ThreadPatch) Validate() error {
	trimPtr(p.Name)
	return validateStruct(p)
}

// ThreadFields is the set of thread columns the registry may write.
// Nil fields are left unchanged.
type ThreadFields struct {
	Name          *string
	Status        *ThreadStatus
	LastSeen      *time.Time
	FrictionScore *float64
}
