package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// WindowRun is one completed window fetch: the subject and window that
// were requested, the outcome counts, and the result document as stored
// JSON. Status is "completed" when every date resolved and "partial"
// when at least one date exhausted its strategy cascade.
type WindowRun struct {
	ID           string
	CreatedAt    time.Time
	SubjectName  string
	StartDate    string
	EndDate      string
	Timezone     string
	SampleCount  int
	AspectCount  int
	WheelAssetID string
	ResultJSON   string // window result stored as text
	Status       string // "completed", "partial"
}

// ProvenanceRecord is one date's acquisition record within a run.
type ProvenanceRecord struct {
	RunID       string
	Date        string
	Strategy    string
	Endpoint    string
	Attempts    int
	AspectCount int
}
