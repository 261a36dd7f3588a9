// Package generate implements the Generator capability: an
// OpenAI-compatible provider client, a deterministic heuristic renderer,
// and a chain that falls back from one to the other. The implementation is
// chosen once at configuration time.
package generate
