// Package bootstrap runs a service's lifecycle: it validates the typed
// configuration, initializes logging, starts registered components in order,
// runs startup hooks, waits for a shutdown signal and stops everything in
// reverse within a graceful timeout.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(dbComponent)
//	app.RegisterComponent(server.NewComponent(srv))
//	app.OnStart(seed)
//	return app.Run(ctx)
package bootstrap
