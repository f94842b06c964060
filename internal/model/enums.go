// Package model holds the forgeone records and their closed enumerations.
package model

import "fmt"

// StateAfter is how a moment left the work.
type StateAfter string

const (
	StateAdvanced StateAfter = "advanced"
	StateStuck    StateAfter = "stuck"
	StateResolved StateAfter = "resolved"
)

// EnergyCost is how much a moment took out of the user.
type EnergyCost string

const (
	EnergyLow    EnergyCost = "low"
	EnergyMedium EnergyCost = "medium"
	EnergyHeavy  EnergyCost = "heavy"
)

// Category classifies an entry. The order of Categories is the precedence
// used to break frequency ties in insights.
type Category string

const (
	CategoryProject  Category = "project"
	CategoryStudy    Category = "study"
	CategoryPersonal Category = "personal"
	CategoryClient   Category = "client"
)

// Categories lists every category in precedence order.
var Categories = []Category{CategoryProject, CategoryStudy, CategoryPersonal, CategoryClient}

// Outcome is how an entry ended.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomePartial Outcome = "partial"
	OutcomeStuck   Outcome = "stuck"
)

// Outcomes lists every outcome in display order.
var Outcomes = []Outcome{OutcomeDone, OutcomePartial, OutcomeStuck}

// ThreadStatus is the only mutable state of a thread besides recency and score.
type ThreadStatus string

const (
	ThreadActive  ThreadStatus = "active"
	ThreadDormant ThreadStatus = "dormant"
)

func (s StateAfter) Valid() bool {
	switch s {
	case StateAdvanced, StateStuck, StateResolved:
		return true
	}
	return false
}

func (e EnergyCost) Valid() bool {
	switch e {
	case EnergyLow, EnergyMedium, EnergyHeavy:
		return true
	}
	return false
}

func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

func (o Outcome) Valid() bool {
	for _, k := range Outcomes {
		if o == k {
			return true
		}
	}
	return false
}

func (s ThreadStatus) Valid() bool {
	return s == ThreadActive || s == ThreadDormant
}

// Toggle returns the other status.
func (s ThreadStatus) Toggle() ThreadStatus {
	if s == ThreadActive {
		return ThreadDormant
	}
	return ThreadActive
}

func ParseStateAfter(s string) (StateAfter, error) {
	v := StateAfter(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown state_after %q", s)
	}
	return v, nil
}

func ParseEnergyCost(s string) (EnergyCost, error) {
	v := EnergyCost(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown energy_cost %q", s)
	}
	return v, nil
}

func ParseCategory(s string) (Category, error) {
	v := Category(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return v, nil
}

func ParseOutcome(s string) (Outcome, error) {
	v := Outcome(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown outcome %q", s)
	}
	return v, nil
}

func ParseThreadStatus(s string) (ThreadStatus, error) {
	v := ThreadStatus(s)
	if !v.Valid() {
		return "", fmt.Errorf("unknown thread status %q", s)
	}
	return v, nil
}
