package simulation

import "fmt"

// Trial builds a training episode: pre, then op, then post, each observed
// in the present, followed by gap idle cycles.
func Trial(pre, op, post string, gap int) Episode {
	return Episode{
		Label: fmt.Sprintf("trial %s %s %s", pre, op, post),
		Lines: []string{
			pre + ". :|:",
			op + ". :|:",
			post + ". :|:",
		},
		Cycles: gap,
	}
}

// Query builds a test episode: pre is observed and goal is desired.
func Query(pre, goal string, gap int) Episode {
	return Episode{
		Label:  fmt.Sprintf("query %s => %s!", pre, goal),
		Lines:  []string{pre + ". :|:", goal + "! :|:"},
		Cycles: gap,
	}
}

// Idle builds an episode with no input.
func Idle(cycles int) Episode {
	return Episode{Label: "idle", Cycles: cycles}
}

// Repeat returns n copies of ep, numbering the labels.
func Repeat(n int, ep Episode) []Episode {
	out := make([]Episode, n)
	for i := range out {
		out[i] = ep
		out[i].Label = fmt.Sprintf("%s #%d", ep.Label, i+1)
	}
	return out
}

// Interleave returns a[0], b[0], a[1], b[1], ... followed by the longer
// slice's remainder.
func Interleave(a, b []Episode) []Episode {
	out := make([]Episode, 0, len(a)+len(b))
	for i := 0; i < len(a) || i < len(b); i++ {
		if i < len(a) {
			out = append(out, a[i])
		}
		if i < len(b) {
			out = append(out, b[i])
		}
	}
	return out
}
