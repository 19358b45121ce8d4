// Package services is the process-wide service locator of a test run.
//
// The locator owns a container built by InitInjector and the application
// under test, which is started lazily on the first call to Application and
// forgotten when it quits. After-scenario hooks ask IsApplicationStarted
// before closing the application, so scenarios that never touched the
// device do not pay for a session.
//
//	if err := services.InitInjector(modules.NewMobileModule(settings)); err != nil {
//	    return err
//	}
//	defer services.Shutdown(ctx)
//
//	app, err := services.Application(ctx)
package services
