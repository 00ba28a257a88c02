// Package scenario defines what a virtual user runs on each iteration: the
// Scenario contract, the weighted Dispatcher that picks one per iteration,
// and the declarative HTTP scenarios built from a plan.
package scenario
