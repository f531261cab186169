package cycle

// Stats are the cumulative counters of a reasoner run.
type Stats struct {
	// TotalConceptsMatched counts every concept the inference stage matched
	// since the run started. Divided by the current time it is the average
	// the threshold controller regulates.
	TotalConceptsMatched int64 `json:"total_concepts_matched"`
	// MaxConceptsMatched is the largest number of concepts matched for a
	// single selected belief.
	MaxConceptsMatched int64 `json:"max_concepts_matched"`
	// Applications counts rule table applications on a matched belief.
	Applications int64 `json:"applications"`
	Activations  int64 `json:"activations"`
	Derivations  int64 `json:"derivations"`
	Discarded    int64 `json:"discarded"`
	Executions   int64 `json:"executions"`
	Ticks        int64 `json:"ticks"`
}

// Context is the mutable state threaded through every stage of a tick:
// the current time, the traversal pass token, the adaptive concept
// priority threshold and the run statistics. It is owned by the caller of
// Perform and must not be shared between reasoners.
type Context struct {
	Time      int64
	Threshold float64
	Stats     Stats

	pass uint64
}

// NewContext returns a context positioned at time 1.
func NewContext() *Context {
	return &Context{Time: 1}
}

// NextPass returns a fresh traversal token. Concepts stamped with an older
// token count as unvisited.
func (c *Context) NextPass() uint64 {
	c.pass++
	return c.pass
}
