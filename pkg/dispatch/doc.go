// Package dispatch runs documentation jobs on a bounded worker pool,
// reconciles every outcome back through the job store, and re-dispatches
// unfinished jobs found at process start.
package dispatch
