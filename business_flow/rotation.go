package businessflow

import "github.com/amirphl/rotalink/models"

// RoutingDecision is the outcome of selecting over one snapshot of a campaign's assignments
type RoutingDecision struct {
	// Selected is the assignment that receives the visit
	Selected *models.OperatorAssignment
	// Reset is set when the visit completes the cycle and every handle must go back to 0
	Reset bool
}

// SelectAssignment picks the next assignment of a weighted rotation cycle.
//
// Eligible assignments are those with Handle < Grade. The one with the highest
// Grade wins and ties go to the lowest assignment ID. The cycle completes when
// total grade == total handle + 1, summed over every assignment before the
// selected one is advanced.
//
// An empty snapshot yields ErrNoEligibleOperator. A non-empty snapshot without
// eligible assignments yields ErrRoutingExhausted, which means the counters are
// out of step with the cycle.
func SelectAssignment(assignments []*models.OperatorAssignment) (RoutingDecision, error) {
	if len(assignments) == 0 {
		return RoutingDecision{}, ErrNoEligibleOperator
	}

	var (
		selected    *models.OperatorAssignment
		totalGrade  int
		totalHandle int
	)
	for _, a := range assignments {
		totalGrade += a.Grade
		totalHandle += a.Handle
		if !a.Eligible() {
			continue
		}
		if selected == nil ||
			a.Grade > selected.Grade ||
			(a.Grade == selected.Grade && a.ID < selected.ID) {
			selected = a
		}
	}

	if selected == nil {
		return RoutingDecision{}, ErrRoutingExhausted
	}

	return RoutingDecision{
		Selected: selected,
		Reset:    totalGrade == totalHandle+1,
	}, nil
}
