/*
Package observability provides monitoring for the Lattice compiler.

It exposes Prometheus metrics for compiles, runs and node executions, and
lifecycle hooks that feed those metrics and a structured logger from the
execution engine.
*/
package observability
