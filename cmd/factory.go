// File: cmd/factory.go
package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/feedwalker/internal/actions"
	"github.com/xkilldash9x/feedwalker/internal/browser"
	"github.com/xkilldash9x/feedwalker/internal/config"
	"github.com/xkilldash9x/feedwalker/internal/humanoid"
	"github.com/xkilldash9x/feedwalker/internal/observability"
	"github.com/xkilldash9x/feedwalker/internal/scenario"
)

// Runner executes a schedule. *scenario.Driver is the production Runner.
type Runner interface {
	Run(ctx context.Context, schedule scenario.Schedule) (scenario.Report, error)
}

// Components holds everything a run needs, wired from configuration.
type Components struct {
	Runner Runner
	Seed   int64
}

// RunOptions are the per-invocation inputs that are not configuration.
type RunOptions struct {
	EnvFile string
	// Seed fixes the random source; zero picks a time-based seed.
	Seed int64
}

// ComponentFactory defines the interface for creating the set of components
// needed for a run. This abstraction keeps the run command testable.
type ComponentFactory interface {
	Create(ctx context.Context, cfg *config.Config, opts RunOptions) (*Components, error)
}

// concreteFactory is the production implementation of the ComponentFactory.
type concreteFactory struct {
	logger func() *zap.Logger
}

func loggerOrGlobal() *zap.Logger { return observability.GetLogger() }

// NewComponentFactory creates a new production-ready component factory.
func NewComponentFactory() ComponentFactory {
	return &concreteFactory{logger: loggerOrGlobal}
}

// Create loads the credentials once for the whole run and wires the
// launcher, pacer, and scenario driver.
func (f *concreteFactory) Create(ctx context.Context, cfg *config.Config, opts RunOptions) (*Components, error) {
	logger := f.logger()

	n, err := config.LoadDotEnv(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		logger.Debug("Loaded variables from env file", zap.String("path", opts.EnvFile), zap.Int("count", n))
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, err
	}

	launcher, err := browser.NewLauncher(logger, cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser launcher: %w", err)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	pacer := humanoid.New(cfg.Humanoid, logger, rand.New(rand.NewSource(seed)))

	driver := scenario.NewDriver(logger, launcher, newBinder(logger, cfg), pacer, creds, cfg.Site, cfg.Scenario)

	return &Components{Runner: driver, Seed: seed}, nil
}

// newBinder returns the function that builds the action handlers for each
// freshly launched page.
func newBinder(logger *zap.Logger, cfg *config.Config) scenario.Binder {
	return func(page browser.Page, pacer *humanoid.Pacer) scenario.Activities {
		interactor := browser.NewInteractor(logger, pacer,
			browser.WithMaxAttempts(cfg.Scenario.MaxClickAttempts),
			browser.WithLinkXPath(cfg.Site.Selectors.Links),
		)
		return actions.New(logger, page, pacer, interactor, cfg.Site,
			actions.WithMessageLength(cfg.Scenario.MessageLength),
		)
	}
}
