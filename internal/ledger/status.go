package ledger

// transitions is an explicit state table: from-state to the set of states
// reachable in one step. Anything missing is illegal.
type transitions[S ~string] map[S][]S

func (t transitions[S]) allowed(from, to S) bool {
	for _, s := range t[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (t transitions[S]) check(aggregate string, from, to S) error {
	if !t.allowed(from, to) {
		return InvalidStatef("%s cannot move from %s to %s", aggregate, from, to)
	}
	return nil
}

type EntryStatus string

const (
	StatusDraft    EntryStatus = "draft"
	StatusPosted   EntryStatus = "posted"
	StatusReversed EntryStatus = "reversed"
	StatusVoided   EntryStatus = "voided"
)

var entryTransitions = transitions[EntryStatus]{
	StatusDraft:  {StatusPosted, StatusVoided},
	StatusPosted: {StatusReversed},
}

// CheckEntryTransition rejects illegal journal entry status changes.
func CheckEntryTransition(from, to EntryStatus) error {
	return entryTransitions.check("journal entry", from, to)
}

func ValidEntryStatus(s EntryStatus) bool {
	switch s {
	case StatusDraft, StatusPosted, StatusReversed, StatusVoided:
		return true
	}
	return false
}

type RowStatus string

const (
	RowPending  RowStatus = "pending"
	RowApproved RowStatus = "approved"
	RowSkipped  RowStatus = "skipped"
	RowBooked   RowStatus = "booked"
)

var rowTransitions = transitions[RowStatus]{
	RowPending:  {RowApproved, RowSkipped},
	RowApproved: {RowPending, RowSkipped, RowBooked},
	RowSkipped:  {RowPending, RowApproved},
}

// CheckRowTransition rejects illegal imported row status changes. Setting a
// row to the status it already has is a no-op, except for booked rows which
// are frozen.
func CheckRowTransition(from, to RowStatus) error {
	if from == to && from != RowBooked {
		return nil
	}
	return rowTransitions.check("imported row", from, to)
}

type ReconciliationStatus string

const (
	ReconInProgress ReconciliationStatus = "in_progress"
	ReconCompleted  ReconciliationStatus = "completed"
)

var reconTransitions = transitions[ReconciliationStatus]{
	ReconInProgress: {ReconCompleted},
}

func CheckReconciliationTransition(from, to ReconciliationStatus) error {
	return reconTransitions.check("reconciliation", from, to)
}

// TemplateState is the activation state of a recurring template.
type TemplateState string

const (
	TemplateActive   TemplateState = "active"
	TemplateInactive TemplateState = "inactive"
)

var templateTransitions = transitions[TemplateState]{
	TemplateActive:   {TemplateInactive},
	TemplateInactive: {TemplateActive},
}

func CheckTemplateTransition(from, to TemplateState) error {
	return templateTransitions.check("recurring template", from, to)
}

type BatchStatus string

const (
	BatchUploaded BatchStatus = "uploaded"
	BatchMapped   BatchStatus = "mapped"
)
