// Package reconcile confirms the registration status of local candidates against the external registry.
//
// The Selector picks the candidates still awaiting a final status, the Orchestrator walks them in
// fixed-size batches under the pacer, and every verification result is mapped by the Reconciler and
// written back before the next candidate starts. A dry run replaces the write with a no-op.
package reconcile
