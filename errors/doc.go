// Package errors provides structured error types for pag-surface.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the failing operation, a detail message, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCall, errors.KindTrap).
//		Op("_PAGSurface._clearAll").
//		Cause(callErr).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Destroyed("width", handle)
//	err := errors.InvalidDimensions("from-texture", 0, 200)
//
// Matching uses errors.Is against a template; an empty Phase matches any phase:
//
//	if stderrors.Is(err, &errors.Error{Kind: errors.KindDestroyed}) { ... }
//	if errors.IsKind(err, errors.KindDestroyed) { ... }
package errors
