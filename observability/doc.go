// Package observability provides OpenTelemetry tracing and metrics for
// scenario runs.
//
// Setup:
//
//	providers, err := observability.Setup(ctx, settings.Observability)
//	defer providers.Shutdown(ctx)
//
// Scenarios:
//
//	sc := observability.NewScenarioContext(id, name, uri, "android", providers.Metrics)
//	ctx, span := sc.StartScenario(ctx)
//	defer sc.EndScenario(ctx, span, err)
//
// Exporters are only created when Config.Enabled is set; otherwise spans and
// metrics go to the global no-op providers.
package observability
