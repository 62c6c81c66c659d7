package model

import "time"

const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
)

const (
	BiasOptimistic = "OPTIMISTIC"
	BiasRealistic  = "REALISTIC"
	BiasFearful    = "FEARFUL"
)

const (
	InitialRealityScore = 100
	InitialPhase        = 1
)

type Commitment struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Title           string     `json:"title"`
	EstimatedEffort float64    `json:"estimatedEffort"`
	ActualEffort    *float64   `json:"actualEffort,omitempty"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	Status          string     `json:"status"`
	EffortGap       *float64   `json:"effortGap,omitempty"`
	EffortRatio     *float64   `json:"effortRatio,omitempty"`
	PendingReason   string     `json:"pendingReason"`
	InaccurateNote  string     `json:"inaccurateNote"`
	Archived        bool       `json:"archived"`
	ArchivedAt      *time.Time `json:"archivedAt,omitempty"`
	Phase           int        `json:"phase"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

func (c *Commitment) IsPending() bool {
	return c.Status == StatusPending
}

func (c *Commitment) IsCompleted() bool {
	return c.Status == StatusCompleted
}
