package cycle

import "github.com/zoobzio/capitan"

// Signals emitted by the reasoning cycle.
// Signals follow the pattern: narloop.<entity>.<event>.
var (
	CycleCompleted = capitan.NewSignal(
		"narloop.cycle.completed",
		"Reasoning cycle finished all stages for one tick",
	)
	DecisionExecuted = capitan.NewSignal(
		"narloop.decision.executed",
		"Operation selected by the decision arbiter was executed",
	)
	DecisionFailed = capitan.NewSignal(
		"narloop.decision.failed",
		"Operation action returned an error",
	)
	GoalDecomposed = capitan.NewSignal(
		"narloop.goal.decomposed",
		"Sequence goal was decomposed into its next subgoal",
	)
	LinkReinforced = capitan.NewSignal(
		"narloop.link.reinforced",
		"Temporal implication was induced from the input belief history",
	)
	DerivationDiscarded = capitan.NewSignal(
		"narloop.derivation.discarded",
		"Derived event dropped because its matched concept changed before commit",
	)
)

// Field keys for cycle event data.
var (
	FieldTime      = capitan.NewIntKey("time")
	FieldBeliefs   = capitan.NewIntKey("beliefs_selected")
	FieldGoals     = capitan.NewIntKey("goals_selected")
	FieldThreshold = capitan.NewFloat32Key("threshold")
	FieldDuration  = capitan.NewDurationKey("duration")

	FieldOperation = capitan.NewStringKey("operation")
	FieldDesire    = capitan.NewFloat32Key("desire")
	FieldSource    = capitan.NewStringKey("source") // mental, external

	FieldGoal      = capitan.NewStringKey("goal")
	FieldDerived   = capitan.NewStringKey("derived")
	FieldSatisfied = capitan.NewIntKey("satisfied_components")

	FieldImplication = capitan.NewStringKey("implication")
	FieldConfidence  = capitan.NewFloat32Key("confidence")

	FieldRule  = capitan.NewStringKey("rule")
	FieldTerm  = capitan.NewStringKey("term")
	FieldError = capitan.NewErrorKey("error")
)

func source(mental bool) string {
	if mental {
		return "mental"
	}
	return "external"
}
