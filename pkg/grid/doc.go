// Package grid defines the non-uniform 1-D grids that span the simulation
// domain. Each spatial axis owns an ordered sequence of grid lines; an
// AxisSet keeps the persisted base grid, the user-requested extra points,
// and the derived working grid that placement and rendering operate on.
package grid
