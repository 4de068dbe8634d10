package types

type (
	// Outcome is the final classification of a development catalog entry.
	Outcome string

	// Reason refines an Outcome.
	Reason string

	// Record is produced once per development catalog entry.
	Record struct {
		Path    string  `json:"path"`
		Outcome Outcome `json:"outcome"`
		Reason  Reason  `json:"reason"`
		AgeDays int     `json:"ageDays,omitempty"`
	}
)

const (
	OutcomeKeep   Outcome = "keep"
	OutcomeDelete Outcome = "delete"
	OutcomeSkip   Outcome = "skip"
)

const (
	ReasonReleased    Reason = "released"
	ReasonYoung       Reason = "young"
	ReasonStale       Reason = "stale"
	ReasonMalformed   Reason = "malformed timestamp"
	ReasonConsistency Reason = "release key missing on re-check"
)
