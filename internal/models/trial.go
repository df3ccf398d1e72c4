package models

import "time"

// TrialUsage tracks how many trial sessions a guardian has consumed.
type TrialUsage struct {
	ParentID   string    `db:"parent_id" json:"parent_id"`
	TrialsUsed int       `db:"trials_used" json:"trials_used"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// TrialEligibility is the read-model answer for eligibility checks.
type TrialEligibility struct {
	ParentID   string `json:"parent_id"`
	TrialsUsed int    `json:"trials_used"`
	TrialCap   int    `json:"trial_cap"`
	Eligible   bool   `json:"eligible"`
}
