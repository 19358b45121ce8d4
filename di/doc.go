// Package di provides the type-keyed dependency injection container that
// backs the scenario object factory.
//
// Bindings are declared by modules. A binding maps a type to a pre-built
// instance or to a constructor whose parameters are themselves resolved by
// type. Each binding has a RegistrationMode that decides how long an
// instance lives: for the whole container (Eager, Lazy, Singleton), for the
// active scenario (Scenario) or for a single resolution (Transient).
//
// # Modules
//
//	var StepsModule = di.NewModule("steps", func(b *di.Binder) error {
//	    di.Provide[*ScenarioContext](b, di.Scenario, NewScenarioContext)
//	    di.Provide[*LoginSteps](b, di.Transient, NewLoginSteps)
//	    return nil
//	})
//
// # Stages
//
// New validates the binding graph in every stage: missing dependencies,
// cycles and singletons that capture scenario-scoped instances are reported
// before any scenario runs. In Production, lazy singletons are also built
// up front so construction failures surface immediately.
//
// # Scenario scope
//
// Scenario bindings need a *ScenarioScope bound by a module. Between Enter
// and Exit every resolution of a scenario-scoped type returns the same
// instance; resolving one outside the scope is an OUT_OF_SCOPE error.
package di
