// Package solver turns an institution snapshot into a conflict-free timetable.
//
// The pipeline validates the time grid and the activities, derives ancestry and
// room eligibility, compiles everything into a boolean model and decides it with
// pkg/cpsat. Failures carry a machine-readable message that the generation
// worker persists verbatim on the schedule.
package solver

import (
	"time"

	"github.com/bogdanivan12/odes/internal/models"
	"github.com/bogdanivan12/odes/pkg/cpsat"
	apperrors "github.com/bogdanivan12/odes/pkg/errors"
)

// Params bounds one generation run.
type Params struct {
	// MaxTime caps the wall-clock solve budget.
	MaxTime time.Duration
	// Workers is the number of parallel search workers.
	Workers int
}

// Generate runs the full pipeline over one snapshot and returns the decoded
// placements. Any failure comes back as a pkg/errors value whose Message is the
// reason the schedule failed: input defects, infeasibility, timeout or an
// engine fault.
func Generate(grid models.TimeGridConfig, activities []models.Activity, rooms []models.Room, groups []models.Group, params Params) ([]Placement, error) {
	inst, err := newInstance(grid, activities, rooms, groups)
	if err != nil {
		return nil, err
	}

	m, vm := buildModel(inst)
	res, err := m.Solve(cpsat.Params{MaxTime: params.MaxTime, Workers: params.Workers})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrSolver.Code, apperrors.ErrSolver.Status, "solver_error")
	}
	switch res.Status {
	case cpsat.StatusInfeasible:
		return nil, apperrors.Clone(apperrors.ErrInfeasible, "infeasible")
	case cpsat.StatusTimeout:
		return nil, apperrors.Clone(apperrors.ErrTimeout, "timeout")
	}
	return decode(inst, vm, res), nil
}
