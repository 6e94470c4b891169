package reconcile

import (
	"github.com/membreg/reconciler/internal/registry"
	"github.com/membreg/reconciler/internal/store/model"
)

// Decision is the local state derived from one registry outcome.
type Decision struct {
	Status       model.VerificationStatus
	DistrictCode *string
}

// Reconciler maps registry outcomes to local statuses.
type Reconciler struct {
	sentinel string
}

// NewReconciler returns a Reconciler treating sentinel as the location code of an unresolved record.
// An empty sentinel disables the override.
func NewReconciler(sentinel string) Reconciler {
	return Reconciler{sentinel: sentinel}
}

// Reconcile derives the new status and district of a candidate. The sentinel location code wins
// over the registration flag. The outcome's location code replaces the existing district unless it
// is missing or the sentinel.
func (r Reconciler) Reconcile(outcome *registry.Outcome, existingDistrict *string) Decision {
	if outcome == nil {
		return Failed(existingDistrict)
	}

	if r.isSentinel(outcome.LocationCode) {
		return Decision{Status: model.StatusNotRegistered, DistrictCode: existingDistrict}
	}

	d := Decision{Status: model.StatusNotRegistered, DistrictCode: existingDistrict}
	if outcome.IsRegistered {
		d.Status = model.StatusRegistered
	}
	if outcome.LocationCode != nil && *outcome.LocationCode != "" {
		code := *outcome.LocationCode
		d.DistrictCode = &code
	}
	return d
}

// Failed is the decision recorded when no usable outcome could be obtained.
func Failed(existingDistrict *string) Decision {
	return Decision{Status: model.StatusVerificationFailed, DistrictCode: existingDistrict}
}

func (r Reconciler) isSentinel(code *string) bool {
	return r.sentinel != "" && code != nil && *code == r.sentinel
}
