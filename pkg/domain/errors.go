package domain

import (
	"errors"
	"fmt"

	"github.com/chazu/vapordomain/pkg/grid"
)

// ValidationError is the grid package's rejection type; every rejected
// operation in this package reports one and leaves the state unchanged.
type ValidationError = grid.ValidationError

var (
	// ErrValidationRejected matches every ValidationError.
	ErrValidationRejected = grid.ErrValidationRejected

	// ErrNoBuilding is returned by operations that need a building.
	ErrNoBuilding = fmt.Errorf("%w: no building in the domain", grid.ErrValidationRejected)

	// ErrInvalidTransition is returned when a placement step is requested
	// in a state that does not allow it.
	ErrInvalidTransition = fmt.Errorf("%w: invalid placement transition", grid.ErrPrecondition)

	// ErrNoPressureField is returned when cell colors are requested before
	// any samples were loaded.
	ErrNoPressureField = errors.New("no pressure field loaded")
)
