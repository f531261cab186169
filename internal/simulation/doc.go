// Package simulation provides a multi-episode test harness for validating
// the emergent behavior of the reasoner.
//
// The simulation exercises the real NAR, cycle engine, and SQLiteStore with
// no mocks. Scenarios are Go builders that register operations and feed
// episodes of Narsese input and idle cycles, capturing the executed
// operations and learned implications after every episode for
// property-based assertions.
//
// Each test gets an isolated SQLite database via t.TempDir() and a sandboxed
// HOME to prevent touching user data.
//
// Usage:
//
//	func TestOperantConditioning(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:       "operant",
//	        Operations: []string{"^go"},
//	        Episodes: append(
//	            simulation.Repeat(3, simulation.Trial("a", "^go", "b", 5)),
//	            simulation.Query("a", "b", 0)),
//	    })
//	    simulation.AssertExecuted(t, result, "^go", 3)
//	}
package simulation
