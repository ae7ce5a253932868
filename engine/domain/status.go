package domain

import "fmt"

// Status is the lifecycle state of a Document.
type Status string

const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusIndexed    Status = "indexed"
	StatusError      Status = "error"
)

// ValidStatuses is the set of recognised document statuses.
var ValidStatuses = map[Status]bool{
	StatusUploaded: true, StatusProcessing: true,
	StatusIndexed: true, StatusError: true,
}

// transitions maps each status to the statuses reachable from it.
// Processing->processing is legal: the pipeline re-enters it on retry and at
// each intermediate phase boundary.
var transitions = map[Status]map[Status]bool{
	StatusUploaded:   {StatusProcessing: true, StatusError: true},
	StatusProcessing: {StatusProcessing: true, StatusIndexed: true, StatusError: true},
	StatusError:      {StatusProcessing: true},
	StatusIndexed:    {StatusProcessing: true}, // reprocessing an indexed doc
}

// CanTransition reports whether from -> to is a legal status transition.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// CheckTransition returns an error describing an illegal transition.
func CheckTransition(from, to Status) error {
	if !ValidStatuses[to] {
		return fmt.Errorf("domain: unknown status %q", to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("domain: illegal status transition %s -> %s", from, to)
	}
	return nil
}

// InFlight reports whether the status is owned by the ingestion subsystem.
func (s Status) InFlight() bool {
	return s == StatusUploaded || s == StatusProcessing
}
