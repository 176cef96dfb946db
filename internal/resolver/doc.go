// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

/*
Package resolver decides which model serves requests.

Resolution walks an ordered list of registry model names. Each name is
fetched under its own timeout; unavailable registries, missing models,
corrupt artifacts and artifacts built for another feature layout are all
recorded as failed attempts and the walk moves on. When nothing loads, the
in-process baseline is built and the result is tagged OutcomeBaseline, which
health reporting exposes as degraded mode. Only a baseline failure is fatal.

# Hot Reload

Manager publishes the active model through an atomic pointer:

	mgr := resolver.NewManager(reg, resolver.Config{Priority: cfg.Model.Priority}, logger)
	if _, err := mgr.Start(ctx); err != nil {
	    // ErrFatalStartup: exit
	}

	active := mgr.Current() // complete, immutable snapshot
	score(active.Model, vectors)

	res, err := mgr.Reload(ctx) // swap; old snapshot stays valid for its holders

Concurrent Reload calls share one resolution (singleflight) and are
throttled by a token bucket. A failed reload leaves the previous model
active.
*/
package resolver
