package workflow

// Stage is the position of a draft in the linear submission sequence
type Stage string

const (
	// StageCreate is the initial form entry stage
	StageCreate Stage = "create"

	// StageEvidence is the evidence collection stage
	StageEvidence Stage = "evidence"

	// StageReview is the terminal stage; final submission happens here and
	// never auto-advances
	StageReview Stage = "review"
)

// Next returns the stage one step forward; Review is terminal
func (s Stage) Next() Stage {
	switch s {
	case StageCreate:
		return StageEvidence
	case StageEvidence:
		return StageReview
	default:
		return s
	}
}

// Previous returns the stage one step backward; Create is initial.
// Moving backward never reverses remote effects already completed in a
// later stage (pinned documents and confirmed transactions stand).
func (s Stage) Previous() Stage {
	switch s {
	case StageReview:
		return StageEvidence
	case StageEvidence:
		return StageCreate
	default:
		return s
	}
}
