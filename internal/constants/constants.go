// Package constants provides the named defaults of the narloop reasoner.
// This centralizes the engine's tuning parameters so that config defaults,
// memory sizes and tests agree on one set of numbers.
package constants

// Memory capacity constants
const (
	// DefaultConceptsMax is the maximum number of concepts held in memory.
	// When exceeded, the least useful concept is evicted.
	DefaultConceptsMax = 4096

	// DefaultCyclingBeliefEventsMax bounds the cycling belief event queue.
	DefaultCyclingBeliefEventsMax = 40

	// DefaultCyclingGoalEventsMax bounds each of the two goal event queues.
	DefaultCyclingGoalEventsMax = 40

	// DefaultFIFOSize is the number of recent input beliefs kept for
	// temporal sequence mining.
	DefaultFIFOSize = 20

	// DefaultMaxSequenceLen is the longest sequence built from the FIFO.
	DefaultMaxSequenceLen = 3

	// MaxSequenceLenLimit bounds MaxSequenceLen; the FIFO keeps 2^len states per slot.
	MaxSequenceLenLimit = 8

	// DefaultTableSize bounds each precondition implication table.
	DefaultTableSize = 20

	// DefaultOperationsMax is the number of operation slots, including the
	// built-in mental ^consider at slot 1.
	DefaultOperationsMax = 10

	// DefaultCompoundTermSizeMax bounds the node count of any stored term.
	DefaultCompoundTermSizeMax = 64
)

// Selection constants control how many events each tick takes from the queues.
const (
	// DefaultBeliefEventSelections is the number of belief events popped per tick.
	DefaultBeliefEventSelections = 1

	// DefaultGoalEventSelections is the number of goals popped per tick from
	// each goal queue.
	DefaultGoalEventSelections = 1
)

// Forgetting constants
const (
	// DefaultEventDurability is the per-tick priority retention of queued events.
	DefaultEventDurability = 0.9999

	// DefaultConceptDurability is the per-tick priority retention of concepts.
	DefaultConceptDurability = 0.9
)

// Truth and threshold constants
const (
	// DefaultMinConfidence is the confidence floor for activating a concept
	// and for keeping a learned implication.
	DefaultMinConfidence = 0.01

	// DefaultConditionThreshold is the projected expectation a belief spike
	// needs to satisfy a sequence goal component.
	DefaultConditionThreshold = 0.501

	// DefaultDecisionThreshold is the desire an operation needs to be executed.
	DefaultDecisionThreshold = 0.501

	// DefaultAnticipationThreshold is the expectation a prediction needs
	// before negative evidence is collected for it.
	DefaultAnticipationThreshold = 0.54

	// DefaultAnticipationConfidence is the confidence of the negative
	// evidence added for an anticipated outcome.
	DefaultAnticipationConfidence = 0.01

	// DefaultTruthProjectionDecay is the per-tick confidence retention when
	// a dated truth is projected in time.
	DefaultTruthProjectionDecay = 0.8

	// DefaultTruthEvidentialHorizon is the evidential horizon k.
	DefaultTruthEvidentialHorizon = 1.0
)

// Adaptive matching constants drive the concept-priority threshold controller.
const (
	// DefaultBeliefConceptMatchTarget is the desired number of concepts
	// matched per selected belief event.
	DefaultBeliefConceptMatchTarget = 80

	// DefaultConceptThresholdAdaptation is the controller gain.
	DefaultConceptThresholdAdaptation = 0.000001

	// DefaultEventBeliefDistance is the time window within which a dated
	// belief overrides a concept's eternal belief during inference.
	DefaultEventBeliefDistance = 20

	// DefaultInferenceWorkers bounds the rule application fan-out.
	DefaultInferenceWorkers = 4
)

// Decision making constants
const (
	// DefaultMotorBabblingChance is the chance per external goal of trying a
	// random operation.
	DefaultMotorBabblingChance = 0.2

	// DefaultRefractoryPeriod is the number of ticks after a babbled
	// operation during which babbling is suppressed.
	DefaultRefractoryPeriod = 50

	// DefaultNopSubgoaling includes operation-free implications in subgoaling.
	DefaultNopSubgoaling = true

	// DefaultSeed seeds the babbling random source.
	DefaultSeed = 42
)

// Event priority constants
const (
	// InputPriority is the queue priority of perceived and injected events.
	InputPriority = 1.0

	// ReinforcedLinkPriority is the priority of implications learned from the FIFO.
	ReinforcedLinkPriority = 1.0
)

// Surface constants
const (
	// DefaultTopConcepts is how many concepts listings show by default.
	DefaultTopConcepts = 20

	// MaxTopConcepts caps concept listings requested over MCP.
	MaxTopConcepts = 500

	// MaxCyclesPerCall caps the ticks a single MCP call may run.
	MaxCyclesPerCall = 100000
)
