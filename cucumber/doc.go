// Package cucumber runs godog scenarios against a dependency injection
// container scoped per scenario.
//
// CustomObjectFactory enters a scenario scope when a scenario starts and
// exits it when the scenario ends, so step definition types bound as
// di.Scenario share state within a scenario and start fresh in the next.
// ApplicationHooks terminates and quits the application under test after
// every scenario that started it, before any other after hook runs.
//
// A typical suite:
//
//	func TestFeatures(t *testing.T) {
//	    suite, err := cucumber.LoadSuite(context.Background(), cucumber.SuiteConfig{
//	        Steps: []di.Module{steps.Module()},
//	        Glue:  []cucumber.Glue{steps.Register},
//	    })
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    ts := suite.Runner.TestSuite("features", &godog.Options{
//	        Format:   "pretty",
//	        Paths:    []string{"features"},
//	        TestingT: t,
//	    })
//	    if ts.Run() != 0 {
//	        t.Fatal("feature tests failed")
//	    }
//	}
package cucumber
