// Package driver generates many function bodies at once.
//
// Generation of one body is single-threaded and owns all of its state, so
// bodies are independent tasks on a bounded worker pool. Finalization,
// including assembly into shared constant pools, is serial and follows the
// input order, so output does not depend on scheduling.
package driver
