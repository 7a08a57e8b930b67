// Package netgate is a network-access gateway: reads are served from a
// bounded TTL cache when warm, cache misses go to the transport through a
// debouncing batch scheduler, mutations invalidate every cached read whose
// key contains the mutated path, and every failure is classified into a
// failure.Kind before it reaches the caller.
//
// Components:
//   - ttlcache.Cache: bounded key/value store, lazy expiry, oldest-insertion eviction.
//   - batch.Scheduler: coalesces bursts of calls into timed, concurrent flushes.
//   - failure.Classify: maps transport outcomes to a closed failure taxonomy.
//   - transport.Transport: the network; transport.HTTP is included.
//
// Keys:
//
//	GET:/users:page=1&team=2   // METHOD:path:sorted query
//
// Usage:
//
//	tr, _ := transport.NewHTTP(transport.HTTPOptions{BaseURL: "https://api.example.com"})
//	gw, _ := netgate.New[User](netgate.Options[User]{Transport: tr, TTL: time.Minute})
//	defer gw.Close(ctx)
//
//	res := gw.Read(ctx, "/users/42", nil)
//	if res.Failure != nil && res.Failure.Retryable {
//	    // back off and retry; the gateway never retries on its own
//	}
package netgate
