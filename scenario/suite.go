package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// SessionOptions how a session is built for one scenario
type SessionOptions struct {
	PinRates bool

	// Logger tagged with the scenario name and run id
	Logger log.Logger
}

// SessionFunc opens a fresh page session. release must be called once the scenario is done.
type SessionFunc func(ctx context.Context, opts SessionOptions) (env Env, release func(), err error)

// Result of one scenario run
type Result struct {
	Name   string        `json:"name"`
	Run    string        `json:"run"`
	Passed bool          `json:"passed"`
	Err    string        `json:"error,omitempty"`
	Took   time.Duration `json:"took"`
}

// Report of a suite run, results are in scenario order
type Report struct {
	Results []Result `json:"results"`
	Passed  int      `json:"passed"`
	Failed  int      `json:"failed"`
}

// Suite runs scenarios, each in its own session
type Suite struct {
	scenarios []Scenario
	session   SessionFunc
	parallel  int
	logger    log.Logger
}

// NewSuite constructs a valid Suite running at most parallel scenarios at once
func NewSuite(session SessionFunc, parallel int, logger log.Logger, scenarios ...Scenario) *Suite {
	if parallel < 1 {
		parallel = 1
	}
	return &Suite{
		scenarios: scenarios,
		session:   session,
		parallel:  parallel,
		logger:    logger,
	}
}

// Names of the scenarios of the suite
func (s *Suite) Names() []string {
	names := make([]string, 0, len(s.scenarios))
	for _, sc := range s.scenarios {
		names = append(names, sc.Name)
	}
	return names
}

// Run runs the named scenarios, or all of them when no name is given.
// A failing scenario is reported, it does not stop the others.
func (s *Suite) Run(ctx context.Context, names ...string) (Report, error) {
	selected, err := s.selectScenarios(names)
	if err != nil {
		return Report{}, err
	}

	results := make([]Result, len(selected))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for i, sc := range selected {
		i, sc := i, sc
		g.Go(func() error {
			results[i] = s.runOne(ctx, sc)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Results: results}
	for _, r := range results {
		if r.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}
	return report, nil
}

func (s *Suite) selectScenarios(names []string) ([]Scenario, error) {
	if len(names) == 0 {
		return s.scenarios, nil
	}
	byName := map[string]Scenario{}
	for _, sc := range s.scenarios {
		byName[sc.Name] = sc
	}
	selected := make([]Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		selected = append(selected, sc)
	}
	return selected, nil
}

func (s *Suite) runOne(ctx context.Context, sc Scenario) Result {
	result := Result{Name: sc.Name, Run: uuid.NewString()}
	logger := log.With(s.logger, "scenario", sc.Name, "run", result.Run)

	begin := time.Now()
	err := s.execute(ctx, sc, logger)
	result.Took = time.Since(begin)
	result.Passed = err == nil

	if err != nil {
		result.Err = err.Error()
		level.Error(logger).Log("msg", "scenario failed", "took", result.Took, "err", err)
	} else {
		level.Info(logger).Log("msg", "scenario passed", "took", result.Took)
	}
	return result
}

func (s *Suite) execute(ctx context.Context, sc Scenario, logger log.Logger) error {
	env, release, err := s.session(ctx, SessionOptions{PinRates: sc.PinRates, Logger: logger})
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer release()

	if err := env.Page.Open(ctx, env.PageURL); err != nil {
		return err
	}
	return sc.Run(ctx, env)
}
