package model

import "time"

const (
	ScoreEventCompletion = "completion"
	ScoreEventPhaseReset = "phase_reset"
)

// ScoreEvent is one entry of the append-only score ledger.
type ScoreEvent struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	CommitmentID *string   `json:"commitmentId,omitempty"`
	Phase        int       `json:"phase"`
	Kind         string    `json:"kind"`
	Delta        int       `json:"delta"`
	ScoreAfter   int       `json:"scoreAfter"`
	BiasAfter    string    `json:"biasAfter"`
	CreatedAt    time.Time `json:"createdAt"`
}
