// Package domain is the document model of a vapor-intrusion simulation
// domain: a working grid, the building, chemical sources and soil layers
// anchored to grid indices, the foundation cracks, and the pressure field.
//
// Engine holds the state and is not safe for concurrent use. Document owns
// one Engine behind a lock and is the only shared entry point: Mutate runs
// a change against a copy and keeps it only if the change succeeds, and
// Checkout/Commit do the same for long edits without holding the lock.
package domain
