// Package profiler implements the daemon's continuous statistical call
// profiler.
//
// Sampling goroutines are tagged through Sampler.Activate; a single ticker
// captures their stacks and charges the elapsed wall time to the executing
// call site, keyed by the pair (call site, immediate caller). Build turns a
// Store into a call tree with inclusive times, and Reporter periodically
// renders that tree to a text file.
//
// Store counters are updated without a common lock; a snapshot taken while
// sampling continues is approximate.
package profiler
