package dom

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/hyperjump/montero/pkg/utils"
)

// DefaultNavigationTimeout bounds loading the form page.
const DefaultNavigationTimeout = 30 * time.Second

// SessionConfig selects the browser a Session drives.
type SessionConfig struct {
	// ControlURL connects to a running browser's DevTools endpoint. When empty
	// a browser is launched and closed with the session.
	ControlURL        string
	Bin               string
	Headless          bool
	NavigationTimeout time.Duration
	Logger            *zap.Logger
}

// Session is one browser tab opened on a portal form.
type Session struct {
	browser  *rod.Browser
	page     *rod.Page
	launched bool
	logger   *zap.Logger
}

// Open loads url in a new tab and waits for it to finish loading.
func Open(ctx context.Context, url string, cfg SessionConfig) (*Session, error) {
	logger := utils.OrNop(cfg.Logger)
	timeout := cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = DefaultNavigationTimeout
	}

	controlURL := cfg.ControlURL
	launched := false
	if controlURL == "" {
		l := launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			l = l.Bin(cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("failed to launch browser: %w", err)
		}
		controlURL = u
		launched = true
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	s := &Session{browser: browser, launched: launched, logger: logger}

	page, err := browser.Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open %s: %w", url, err)
	}
	s.page = page
	if err := page.Timeout(timeout).WaitLoad(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load %s: %w", url, err)
	}
	logger.Debug("form page loaded", zap.String("url", url), zap.Bool("launched", launched))
	return s, nil
}

// Page returns the tab.
func (s *Session) Page() *rod.Page { return s.page }

// Form wraps the tab as an autocomplete form.
func (s *Session) Form(opts ...Option) *Form {
	return NewForm(s.page, append([]Option{WithLogger(s.logger)}, opts...)...)
}

// Close closes the tab, and the browser when the session launched it.
func (s *Session) Close() error {
	var err error
	if s.page != nil {
		err = s.page.Close()
	}
	if s.launched {
		if cerr := s.browser.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
