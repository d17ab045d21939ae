// Package cohort implements the adaptive two-pass cohort generation engine.
//
// A run proceeds through two sampling passes separated by a single
// checkpoint. The first pass draws from the configured population parameters
// unmodified while a Tracker accumulates running statistics. At the
// checkpoint the tracker compares every tracked metric against its target and
// freezes a set of correction directives: additive shifts for continuous
// means, probability multipliers for symptom rates, and weight biases for
// categorical balances. The second pass draws with those directives applied.
// Records emitted before the checkpoint are never revisited; the correction
// works purely by steering the remainder of the run.
//
// The engine is single threaded. Each run owns its random stream, tracker,
// and generator, so concurrent runs in one process cannot interfere as long
// as they do not share a Config's output destinations.
package cohort
