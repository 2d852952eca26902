// -----------------------------------------------------------------------
// Session Controller - owns the single browser automation context
// -----------------------------------------------------------------------

package session

import (
	"context"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/courier/internal/common"
	"github.com/ternarybob/courier/internal/interfaces"
	"github.com/ternarybob/courier/internal/models"
	"github.com/ternarybob/courier/internal/target"
)

// Service implements SessionService on chromedp. It owns exactly one
// allocator and one browser context; callers borrow the browser context
// per interaction and never retain it.
type Service struct {
	config        *common.SessionConfig
	targetConfig  *common.TargetConfig
	logger        arbor.ILogger
	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	authenticated bool
	closed        bool
}

// NewService creates a new session service. The browser is launched
// lazily on first use.
func NewService(config *common.SessionConfig, targetConfig *common.TargetConfig, logger arbor.ILogger) interfaces.SessionService {
	return &Service{
		config:       config,
		targetConfig: targetConfig,
		logger:       logger,
	}
}

// EnsureSession returns an authenticated browser context, launching the
// browser and logging in as needed. A browser that died since the last
// call is detected and recycled rather than surfaced as an error.
func (s *Service) EnsureSession(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, &models.AuthenticationError{Reason: "session controller is closed"}
	}

	if err := s.ensureBrowserLocked(ctx); err != nil {
		return nil, err
	}

	if !s.authenticated {
		if err := s.loginLocked(ctx, s.targetConfig.Credentials); err != nil {
			return nil, err
		}
	}

	return s.browserCtx, nil
}

// Login authenticates against the target site. Network, navigation and
// timeout failures during the flow are all reported as an
// AuthenticationError; no transport error leaks past this boundary.
func (s *Service) Login(ctx context.Context, creds models.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return &models.AuthenticationError{Reason: "session controller is closed"}
	}
	if err := s.ensureBrowserLocked(ctx); err != nil {
		return err
	}
	return s.loginLocked(ctx, creds)
}

func (s *Service) loginLocked(ctx context.Context, creds models.Credentials) error {
	if creds.Identity == "" || creds.Secret == "" {
		return &models.AuthenticationError{Reason: "no credentials configured"}
	}

	s.logger.Info().
		Str("login_url", s.targetConfig.LoginURL).
		Msg("Logging in to target site")

	navCtx, cancel := context.WithTimeout(s.browserCtx, s.config.NavigationTimeout.Std())
	defer cancel()

	var landedURL string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(s.targetConfig.LoginURL),
		chromedp.WaitVisible(target.LoginIdentityInput, chromedp.ByQuery),
		chromedp.SendKeys(target.LoginIdentityInput, creds.Identity, chromedp.ByQuery),
		chromedp.SendKeys(target.LoginSecretInput, creds.Secret, chromedp.ByQuery),
		chromedp.Click(target.LoginSubmitButton, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&landedURL),
	)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Login navigation failed")
		return &models.AuthenticationError{Reason: "login navigation failed", Cause: err}
	}

	// Success is judged by where the browser landed, never by HTTP status
	if isLoginURL(landedURL) {
		s.logger.Warn().Str("landed_url", landedURL).Msg("Still on login page after submit")
		return &models.AuthenticationError{Reason: "credentials rejected"}
	}

	s.authenticated = true
	s.logger.Info().Msg("Login succeeded")
	return nil
}

// IsAuthenticated is a best-effort check used for branching only: it
// navigates to the authenticated landing view and inspects the resulting
// URL, returning false on any error rather than failing.
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.browserCtx == nil {
		return false
	}

	navCtx, cancel := context.WithTimeout(s.browserCtx, s.config.NavigationTimeout.Std())
	defer cancel()

	var landedURL string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(s.targetConfig.LandingURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&landedURL),
	)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Authentication check failed")
		return false
	}

	authenticated := !isLoginURL(landedURL)
	s.authenticated = authenticated
	return authenticated
}

// Logout navigates to the site's logout endpoint
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.browserCtx == nil {
		return nil
	}

	navCtx, cancel := context.WithTimeout(s.browserCtx, s.config.NavigationTimeout.Std())
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(s.targetConfig.LogoutURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	s.authenticated = false
	if err != nil {
		s.logger.Warn().Err(err).Msg("Logout navigation failed")
		return err
	}

	s.logger.Info().Msg("Logged out of target site")
	return nil
}

// Close releases the browser and all pages. Idempotent.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.releaseBrowserLocked()
	s.logger.Info().Msg("Session controller closed")
	return nil
}

// ensureBrowserLocked launches the browser if needed and recycles it if
// the previous instance died. Must be called with the mutex held.
func (s *Service) ensureBrowserLocked(ctx context.Context) error {
	if s.browserCtx != nil {
		// Probe the existing instance; a crashed Chrome is recycled
		probeCtx, cancel := context.WithTimeout(s.browserCtx, s.config.ElementTimeout.Std())
		err := chromedp.Run(probeCtx, chromedp.ActionFunc(func(context.Context) error { return nil }))
		cancel()
		if err == nil {
			return nil
		}
		s.logger.Warn().Err(err).Msg("Browser instance unresponsive, recycling")
		s.releaseBrowserLocked()
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", s.config.Headless),
		chromedp.Flag("no-sandbox", s.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.UserAgent(s.config.UserAgent),
		chromedp.WindowSize(s.config.ViewportWidth, s.config.ViewportHeight),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			s.logger.Debug().Msgf("chromedp: "+format, args...)
		}),
	)

	// Startup test plus header/viewport tuning on the fresh instance
	startCtx, cancel := context.WithTimeout(browserCtx, s.config.NavigationTimeout.Std())
	defer cancel()

	err := chromedp.Run(startCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{
			"Accept-Language": s.config.AcceptLanguage,
		}),
		emulation.SetDeviceMetricsOverride(int64(s.config.ViewportWidth), int64(s.config.ViewportHeight), 1, false),
		chromedp.Navigate("about:blank"),
	)
	if err != nil {
		browserCancel()
		allocCancel()
		return &models.AuthenticationError{Reason: "browser failed to launch", Cause: err}
	}

	s.allocCancel = allocCancel
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.authenticated = false

	s.logger.Info().
		Bool("headless", s.config.Headless).
		Int("viewport_width", s.config.ViewportWidth).
		Int("viewport_height", s.config.ViewportHeight).
		Msg("Browser launched")
	return nil
}

// releaseBrowserLocked cancels the browser and allocator contexts.
// Must be called with the mutex held.
func (s *Service) releaseBrowserLocked() {
	if s.browserCancel != nil {
		s.browserCancel()
		s.browserCancel = nil
	}
	if s.allocCancel != nil {
		s.allocCancel()
		s.allocCancel = nil
	}
	s.browserCtx = nil
	s.authenticated = false
}

// isLoginURL reports whether a landed URL is (still) the login surface
func isLoginURL(rawURL string) bool {
	return strings.Contains(rawURL, target.LoginPathMarker)
}
