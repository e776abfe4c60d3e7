// Package redis provides the connection handle used to reach a RedisGears
// node: a go-redis client with gokit-style configuration and logging.
//
// The gears client only needs one capability from it, Do, which sends an
// arbitrary command and returns the raw reply:
//
//	client, err := redis.New(redis.Config{Enabled: true, Addr: "localhost:6379"}, log)
//	reply, err := client.Do(ctx, "RG.PYEXECUTE", script)
//
// A single Client is safe for concurrent use and may back many builders.
package redis
