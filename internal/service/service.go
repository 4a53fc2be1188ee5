// Package service is the composition root: it builds the persona, selects
// the engine backend, and wires the tab manager and dispatcher together for
// the CLI.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/7blacky7/ki-browser-standalone/internal/config"
	"github.com/7blacky7/ki-browser-standalone/internal/dispatch"
	"github.com/7blacky7/ki-browser-standalone/internal/engine"
	"github.com/7blacky7/ki-browser-standalone/internal/engine/cdp"
	"github.com/7blacky7/ki-browser-standalone/internal/engine/mock"
	"github.com/7blacky7/ki-browser-standalone/internal/netprobe"
	"github.com/7blacky7/ki-browser-standalone/internal/stealth"
	"github.com/7blacky7/ki-browser-standalone/internal/tabs"
)

// chromeAvailable is swapped in tests to pin the auto-selection branch.
var chromeAvailable = engine.ChromeAvailable

// Service owns the assembled browser stack.
type Service struct {
	cfg     *config.Config
	logger  *zap.Logger
	persona *stealth.Persona
	backend engine.Backend
	tabs    *tabs.Manager
	disp    *dispatch.Dispatcher
}

// New assembles the stack from configuration. The backend selection happens
// here, once; it is not revisited for the lifetime of the service.
func New(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := netprobe.Validate(cfg.Proxy); err != nil {
		return nil, fmt.Errorf("proxy validation failed: %w", err)
	}

	// stealth_mode gates the whole injector: no persona is generated or
	// applied when it is off, and pages present the stock browser identity.
	var persona *stealth.Persona
	if cfg.Browser.StealthMode {
		gen := stealth.NewGenerator(cfg.Browser.FingerprintSeed)
		fp := gen.Random()
		persona = stealth.NewPersona(fp)
		if cfg.Browser.UserAgent != "" {
			persona.UserAgentOverride = cfg.Browser.UserAgent
		}
		logger.Info("Session persona generated",
			zap.Int64("fingerprint_seed", gen.Seed()),
			zap.String("profile", string(fp.Profile)),
			zap.String("user_agent", persona.UserAgent()))
	} else {
		logger.Info("Stealth mode disabled, no persona will be applied")
	}

	backend, err := selectBackend(cfg, persona, logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:     cfg,
		logger:  logger,
		persona: persona,
		backend: backend,
	}, nil
}

// selectBackend maps the engine setting onto an implementation. Auto probes
// for a usable Chrome and falls back to the mock engine when none is found.
func selectBackend(cfg *config.Config, persona *stealth.Persona, logger *zap.Logger) (engine.Backend, error) {
	newMock := func() engine.Backend {
		ua := cfg.Browser.UserAgent
		if persona != nil {
			ua = persona.UserAgent()
		}
		return mock.New(mock.Options{
			UserAgent:     ua,
			ProxyUsername: cfg.Proxy.Username,
		}, logger)
	}

	switch cfg.Browser.Engine {
	case config.EngineMock:
		return newMock(), nil
	case config.EngineCDP:
		return cdp.New(cfg.Browser, cfg.Proxy, persona, logger), nil
	case config.EngineNative:
		return engine.NewNative(), nil
	case config.EngineAuto, "":
		if chromeAvailable() {
			return cdp.New(cfg.Browser, cfg.Proxy, persona, logger), nil
		}
		logger.Warn("No Chrome installation found, falling back to mock engine")
		return newMock(), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Browser.Engine)
	}
}

// Start brings the backend up and wires the dispatcher.
func (s *Service) Start(ctx context.Context) error {
	if err := s.backend.Start(ctx); err != nil {
		return fmt.Errorf("failed to start %s backend: %w", s.backend.Kind(), err)
	}
	s.logger.Info("Engine backend started", zap.String("kind", string(s.backend.Kind())))

	s.tabs = tabs.NewManager(s.cfg.Browser.MaxTabs, s.logger)
	s.disp = dispatch.New(s.backend, s.tabs, s.cfg, dispatch.DefaultOptions(s.cfg.Browser), s.logger)
	return nil
}

// Stop drains the dispatcher and tears the backend down.
func (s *Service) Stop(ctx context.Context) error {
	if s.disp != nil {
		s.disp.Shutdown(ctx)
	}
	if err := s.backend.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop %s backend: %w", s.backend.Kind(), err)
	}
	s.logger.Info("Engine backend stopped")
	return nil
}

// Dispatcher exposes the command entry point. Nil before Start.
func (s *Service) Dispatcher() *dispatch.Dispatcher { return s.disp }

// Backend exposes the selected engine backend.
func (s *Service) Backend() engine.Backend { return s.backend }

// Persona exposes the session identity.
func (s *Service) Persona() *stealth.Persona { return s.persona }

// Tabs exposes the tab manager. Nil before Start.
func (s *Service) Tabs() *tabs.Manager { return s.tabs }
