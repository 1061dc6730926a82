package enums

// Decision represents the action a moderator takes on a pending submission.
type Decision string

const (
	// DecisionApproved indicates the moderator accepted the submission.
	DecisionApproved Decision = "approved"
	// DecisionRejected indicates the moderator declined the submission.
	DecisionRejected Decision = "rejected"
)

// String returns the literal string for the decision.
func (d Decision) String() string {
	return string(d)
}

// IsValid reports whether the decision is known.
func (d Decision) IsValid() bool {
	return d == DecisionApproved || d == DecisionRejected
}
