// Package gears builds RedisGears-style data pipelines on the client and
// ships them, user logic included, to a remote execution engine.
//
// A RemoteBuilder records one Step per chained operator call. Run and
// Register are the only calls that talk to the server: they serialize the
// accumulated Pipeline, wrap it in a small bootstrap script and send it as a
// single command. The remote node decodes the Pipeline and replays it against
// its native builder with CreateAndRun.
//
// # User logic
//
// Go cannot ship compiled closures, so user logic travels as a Func: the name
// of a Handler registered on both sides plus the values it captures. Captured
// values are JSON encoded, so anything that cannot be encoded (channels,
// funcs) is rejected locally before a command is sent.
//
//	gears.RegisterFunc("square", func(env *gears.Env, in ...any) (any, error) {
//	    n, err := gears.ToFloat(in[0])
//	    return n * n, err
//	})
//
//	res, err := gears.NewRemoteBuilder(gears.WithConn(conn)).
//	    Filter(gears.Fn("is_even")).
//	    Map(gears.Fn("square")).
//	    Run(ctx, nil)
//
// # Remote capabilities
//
// Handlers receive the executing node's Runtime through Env. Log, ConfigGet,
// Execute, HashTag and Atomic forward to it.
package gears
