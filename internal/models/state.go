// Package models defines state management structures for reveal flows.
package models

import "time"

// VisitedKey is the fixed key the "has completed the flow" flag is stored under.
const VisitedKey = "reveal.visited"

// FlowState represents where a visitor currently is in the reveal flow.
type FlowState struct {
	Layer      Layer  `json:"layer"`
	Step       StepID `json:"step"`
	WarmMode   bool   `json:"warm_mode"`
	FirstVisit bool   `json:"first_visit"`
}

// StateTransition records a step change observed by the orchestrator.
type StateTransition struct {
	FromStep StepID    `json:"from_step"`
	ToStep   StepID    `json:"to_step"`
	At       time.Time `json:"at"`
}

// Visitor is the server-side record backing the visited flag for browser clients.
type Visitor struct {
	ID          string     `json:"id"`
	Visited     bool       `json:"visited"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
