// Wisata - Tourism Recommendation Serving Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/wisata

/*
Package supervisor provides process supervision for Wisata using suture v4.

The tree separates background model jobs from the HTTP listener:

	RootSupervisor ("wisata")
	├── ModelSupervisor ("model-layer")
	│   ├── ReloadService
	│   └── SweepService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Services that return an error are restarted with suture's backoff; a
service returning ctx.Err() after cancellation is a clean stop. Supervisor
events are logged through sutureslog into the zerolog pipeline via
logging.NewSlogLogger.

Usage:

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{})
	if err != nil {
	    return err
	}
	tree.AddModelService(services.NewReloadService(svc, cfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, addr, 10*time.Second, logger))
	return tree.Serve(ctx)
*/
package supervisor
