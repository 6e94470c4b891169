package reconcile

import (
	"time"

	"github.com/membreg/reconciler/internal/registry"
	"github.com/membreg/reconciler/internal/store/model"
)

// Entry describes what happened to one candidate during a run.
type Entry struct {
	CandidateID    int64
	ExternalKey    string
	PreviousStatus model.VerificationStatus
	Status         model.VerificationStatus
	DistrictCode   *string
	StatusLabel    string
	Attempts       int
	ErrorCategory  registry.ErrorCategory
	Err            error
	DryRun         bool
	VerifiedAt     time.Time
}

// Recorder observes every processed candidate. Record is called from the run goroutine
// after the candidate has been written.
type Recorder interface {
	Record(e Entry)
}

type RecorderFunc func(e Entry)

func (f RecorderFunc) Record(e Entry) {
	f(e)
}
