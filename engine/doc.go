// Package engine is an in-memory, single-partition execution engine for
// replayed gears pipelines.
//
// Records flow through lazy pull-based streams. Map-like operators process
// one record at a time; sort, distinct, count, countby, avg, aggregate and
// aggregateby materialize their input first. A handler that fails drops its
// record and adds an error descriptor to the outcome, so a run can succeed
// partially.
//
//	eng := engine.New(engine.WithReader("KeysReader", keysReader))
//	out, err := eng.Execute(ctx, pipeline)
//
// Registrations installed with Register run on Trigger for every key that
// matches their prefix glob.
package engine
