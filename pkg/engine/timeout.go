package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/chazu/vapordomain/pkg/domain"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// errSuperseded reports that a newer evaluation started first.
var errSuperseded = errors.New("evaluation superseded by newer request")

// evalResult is the internal type used to pass evaluation results through channels.
type evalResult struct {
	state  *domain.Engine
	errors []EvalError
	err    error
}

// wait waits for a result from ch, but returns a timeout error if the
// evaluation exceeds the engine's timeout. It uses the generation counter
// to discard stale results from previous evaluations.
//
// On timeout the goroutine may still be running. Bumping the generation
// makes it fail its commit claim, so its state is never swapped in. A run
// that already claimed the commit is waited for instead.
func (e *Engine) wait(ch <-chan evalResult, gen uint64) (*domain.Engine, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()

		// A stale run that never committed has nothing worth reporting.
		if gen != current && res.state == nil {
			return nil, nil, errSuperseded
		}
		return res.state, res.errors, res.err

	case <-timer.C:
		e.mu.Lock()
		claimed := e.committing == gen
		if !claimed && e.generation == gen {
			e.generation++
		}
		e.mu.Unlock()

		if claimed {
			res := <-ch
			return res.state, res.errors, res.err
		}
		e.logger.Warn("evaluation timed out", "timeout", e.timeout)
		return nil, nil, fmt.Errorf("evaluation timed out after %s", e.timeout)
	}
}
