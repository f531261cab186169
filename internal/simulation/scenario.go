package simulation

import (
	"github.com/nvandessel/narloop/internal/cycle"
	"github.com/nvandessel/narloop/internal/nar"
	"github.com/nvandessel/narloop/internal/truth"
)

// Scenario defines a complete simulation experiment.
type Scenario struct {
	Name       string
	Operations []string
	Episodes   []Episode

	// Config overrides the reasoner parameters. When nil the defaults are
	// used with motor babbling disabled, so that runs are deterministic.
	Config *nar.Config

	// BeforeEpisode, when non-nil, is called before each episode executes.
	BeforeEpisode func(episodeIndex int, n *nar.NAR)

	// Snapshot saves a snapshot of the reasoner after every episode.
	Snapshot bool
}

// Episode is a batch of input followed by idle cycles.
type Episode struct {
	Label  string
	Lines  []string
	Cycles int
}

// EpisodeResult captures the state after a single episode.
type EpisodeResult struct {
	Index        int
	Label        string
	Executed     []string
	Time         int64
	Threshold    float64
	ConceptCount int
	Stats        cycle.Stats

	// Implications maps every learned implication term to its truth.
	Implications map[string]truth.Truth
}

// SimulationResult captures all episodes and the final reasoner.
type SimulationResult struct {
	Episodes []EpisodeResult
	NAR      *nar.NAR
	RunID    string
}
