package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/feedwalker/internal/config"
)

// Launcher starts one fresh browser instance per call to Launch. Which
// engine it drives is a configuration choice, not something detected from
// the host.
type Launcher struct {
	logger *zap.Logger
	cfg    config.BrowserConfig
}

// NewLauncher validates the engine selection and returns a Launcher.
func NewLauncher(logger *zap.Logger, cfg config.BrowserConfig) (*Launcher, error) {
	switch cfg.Engine {
	case config.EngineChrome:
	case config.EngineRemote:
		if _, err := url.Parse(cfg.RemoteURL); err != nil || cfg.RemoteURL == "" {
			return nil, fmt.Errorf("invalid remote browser url %q", cfg.RemoteURL)
		}
	default:
		return nil, fmt.Errorf("unsupported browser engine %q", cfg.Engine)
	}
	return &Launcher{logger: logger.Named("launcher"), cfg: cfg}, nil
}

// Launch starts a browser and returns its single tab. The browser lives until
// Page.Close is called or ctx is cancelled.
func (l *Launcher) Launch(ctx context.Context) (Page, error) {
	allocCtx, allocCancel := l.newAllocator(ctx)

	sugar := l.logger.Sugar()
	ctxOpts := []chromedp.ContextOption{
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Warnf),
	}
	if l.cfg.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(sugar.Debugf))
	}
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, ctxOpts...)

	// Running an empty action list starts the browser and attaches the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start %s browser: %w", l.cfg.Engine, err)
	}

	id := uuid.NewString()
	l.logger.Info("Browser started",
		zap.String("page_id", id),
		zap.String("engine", l.cfg.Engine),
		zap.Bool("headless", l.cfg.Headless),
	)

	return &chromePage{
		id:            id,
		logger:        l.logger.With(zap.String("page_id", id)),
		ctx:           tabCtx,
		cancelTab:     tabCancel,
		cancelAlloc:   allocCancel,
		actionTimeout: l.cfg.ActionTimeout,
	}, nil
}

func (l *Launcher) newAllocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.cfg.Engine == config.EngineRemote {
		return chromedp.NewRemoteAllocator(ctx, l.cfg.RemoteURL)
	}
	return chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)
}

// allocatorOptions configures the flags for the browser executable.
func (l *Launcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+16)
	for _, opt := range chromedp.DefaultExecAllocatorOptions {
		opts = append(opts, opt)
	}

	// The defaults run headless; a visible window is the normal mode here.
	opts = append(opts, chromedp.Flag("headless", l.cfg.Headless))
	if l.cfg.Headless {
		opts = append(opts, chromedp.DisableGPU)
	}

	if l.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.cfg.ExecPath))
	}
	if l.cfg.WindowWidth > 0 && l.cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(l.cfg.WindowWidth, l.cfg.WindowHeight))
	}
	if l.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.cfg.UserAgent))
	}
	if l.cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(l.cfg.Proxy))
	}

	opts = append(opts,
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("ignore-certificate-errors", l.cfg.IgnoreTLSErrors),
	)

	for _, arg := range l.cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	return opts
}
