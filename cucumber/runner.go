package cucumber

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/cucumber/godog"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/mobilekit/logger"
	"github.com/kbukum/mobilekit/observability"
)

// Glue registers step definitions on a scenario. Steps resolve the types
// they run against from f while the scenario runs, through Instance.
type Glue func(sc *godog.ScenarioContext, f ObjectFactory)

// CleanupFunc releases a suite-wide resource after the last scenario.
type CleanupFunc func(ctx context.Context) error

// Runner connects an ObjectFactory and ordered hooks to godog.
//
// For each scenario the runner starts the factory, runs the before hooks,
// and after the steps runs the after hooks and stops the factory. Stop
// runs even when a hook fails, so every Start has exactly one Stop.
type Runner struct {
	factory  ObjectFactory
	hooks    *Hooks
	glue     []Glue
	metrics  *observability.Metrics
	platform string
	cleanup  []CleanupFunc
	timeout  time.Duration
	log      *logger.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithGlue adds step definition registrations.
func WithGlue(glue ...Glue) RunnerOption {
	return func(r *Runner) { r.glue = append(r.glue, glue...) }
}

// WithHooks sets the hook registry. By default the runner has an empty one.
func WithHooks(h *Hooks) RunnerOption {
	return func(r *Runner) { r.hooks = h }
}

// WithScenarioMetrics records scenario metrics for platform.
func WithScenarioMetrics(m *observability.Metrics, platform string) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
		r.platform = platform
	}
}

// WithSuiteCleanup adds functions run after the suite, in order.
func WithSuiteCleanup(fns ...CleanupFunc) RunnerOption {
	return func(r *Runner) { r.cleanup = append(r.cleanup, fns...) }
}

// WithCleanupTimeout bounds the suite cleanup. Defaults to one minute.
func WithCleanupTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.timeout = d }
}

// NewRunner creates a runner for factory.
func NewRunner(factory ObjectFactory, opts ...RunnerOption) *Runner {
	r := &Runner{
		factory: factory,
		timeout: time.Minute,
		log:     logger.Get(logger.ComponentRunner),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.hooks == nil {
		r.hooks = NewHooks()
	}
	return r
}

// Hooks returns the hook registry.
func (r *Runner) Hooks() *Hooks { return r.hooks }

// Factory returns the object factory.
func (r *Runner) Factory() ObjectFactory { return r.factory }

// InitializeTestSuite is a godog TestSuiteInitializer.
func (r *Runner) InitializeTestSuite(ts *godog.TestSuiteContext) {
	ts.AfterSuite(func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := r.Close(ctx); err != nil {
			r.log.Error("suite cleanup failed", logger.ErrorFields("after_suite", err))
		}
	})
}

// TestSuite returns a godog suite driven by r. Scenarios share one
// application and one scenario scope, so concurrency is forced to 1.
func (r *Runner) TestSuite(name string, opts *godog.Options) godog.TestSuite {
	if opts == nil {
		opts = &godog.Options{}
	}
	opts.Concurrency = 1
	return godog.TestSuite{
		Name:                 name,
		TestSuiteInitializer: r.InitializeTestSuite,
		ScenarioInitializer:  r.InitializeScenario,
		Options:              opts,
	}
}

// Close runs the suite cleanup functions and joins their errors.
func (r *Runner) Close(ctx context.Context) error {
	var errs []error
	for _, fn := range r.cleanup {
		if err := fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

type scenarioRunKey struct{}

// scenarioRun is the state a scenario carries from Before to After.
type scenarioRun struct {
	obs     *observability.ScenarioContext
	span    trace.Span
	started bool
}

// InitializeScenario is a godog ScenarioInitializer.
func (r *Runner) InitializeScenario(sc *godog.ScenarioContext) {
	for _, g := range r.glue {
		g(sc, r.factory)
	}
	sc.Before(r.before)
	sc.After(r.after)
}

func (r *Runner) before(ctx context.Context, s *godog.Scenario) (context.Context, error) {
	run := &scenarioRun{obs: observability.NewScenarioContext(s.Id, s.Name, s.Uri, r.platform, r.metrics)}
	ctx, run.span = run.obs.StartScenario(ctx)
	ctx = logger.ContextWithScenario(ctx, s.Id, s.Name)
	ctx = context.WithValue(ctx, scenarioRunKey{}, run)

	if err := r.factory.Start(); err != nil {
		return ctx, err
	}
	run.started = true
	logger.WithContext(ctx).Debug("scenario started", logger.Fields("uri", s.Uri))

	return ctx, r.hooks.RunBefore(ctx)
}

func (r *Runner) after(ctx context.Context, s *godog.Scenario, scenarioErr error) (context.Context, error) {
	run, _ := ctx.Value(scenarioRunKey{}).(*scenarioRun)

	hookErr := r.hooks.RunAfter(ctx)

	var stopErr error
	if run != nil && run.started {
		stopErr = r.factory.Stop()
	}
	err := stderrors.Join(hookErr, stopErr)

	if run != nil {
		run.obs.EndScenario(ctx, run.span, stderrors.Join(scenarioErr, err))
	}
	status := observability.StatusPassed
	if scenarioErr != nil || err != nil {
		status = observability.StatusFailed
	}
	logger.WithContext(ctx).Info("scenario finished", logger.Fields(
		logger.FieldStatus, status,
		"uri", s.Uri,
	))
	return ctx, err
}
