package models

// ResolutionKind is one of the four ways a candidate can be resolved
type ResolutionKind string

const (
	ResolutionSaveAsNew ResolutionKind = "save_as_new"
	ResolutionReplace   ResolutionKind = "replace"
	ResolutionMerge     ResolutionKind = "merge"
	ResolutionAbort     ResolutionKind = "abort"
)

// NeedsTarget reports whether the kind mutates an existing contact
func (k ResolutionKind) NeedsTarget() bool {
	return k == ResolutionReplace || k == ResolutionMerge
}

// ResolutionState is a state of the resolution workflow
type ResolutionState string

const (
	StateIdle       ResolutionState = "idle"
	StateMatching   ResolutionState = "matching"
	StateNoMatch    ResolutionState = "no_match"
	StateMatchFound ResolutionState = "match_found"
	StateDeciding   ResolutionState = "deciding"
	StateSavingNew  ResolutionState = "saving_new"
	StateReplacing  ResolutionState = "replacing"
	StateMerging    ResolutionState = "merging"
	StateAborted    ResolutionState = "aborted"
	StateDone       ResolutionState = "done"
)

// Decision is the caller's answer to a surfaced match
type Decision struct {
	Kind     ResolutionKind `json:"decision" validate:"required,oneof=save_as_new replace merge abort"`
	TargetID string         `json:"target_id,omitempty" validate:"required_if=Kind replace,required_if=Kind merge"`
}

func SaveAsNew() Decision {
	return Decision{Kind: ResolutionSaveAsNew}
}

func Replace(targetID string) Decision {
	return Decision{Kind: ResolutionReplace, TargetID: targetID}
}

func Merge(targetID string) Decision {
	return Decision{Kind: ResolutionMerge, TargetID: targetID}
}

func Abort() Decision {
	return Decision{Kind: ResolutionAbort}
}

// Outcome is the terminal result of a resolution. Contact is the persisted
// record, nil when the resolution was aborted.
type Outcome struct {
	Kind     ResolutionKind `json:"kind"`
	TargetID string         `json:"target_id,omitempty"`
	Contact  *Contact       `json:"contact,omitempty"`
}

// BeginResolutionRequest starts a resolution. A decision may be supplied up
// front, in which case it is applied as soon as matches are found.
type BeginResolutionRequest struct {
	Contact  CreateContactRequest `json:"contact"`
	Decision *Decision            `json:"decision,omitempty"`
}

// ResolutionResponse describes a resolution after a step
type ResolutionResponse struct {
	ID        string          `json:"id,omitempty"`
	State     ResolutionState `json:"state"`
	Matches   []MatchResult   `json:"matches"`
	BestMatch *MatchResult    `json:"best_match,omitempty"`
	Outcome   *Outcome        `json:"outcome,omitempty"`
}
