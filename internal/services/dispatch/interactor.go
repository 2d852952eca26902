package dispatch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ternarybob/courier/internal/common"
	"github.com/ternarybob/courier/internal/target"
)

// Interactor performs the page-level steps of one delivery attempt.
// The chromedp implementation drives the real browser; tests substitute
// a fake to exercise the retry loop without Chrome.
type Interactor interface {
	// Navigate opens the recipient profile and waits for it to settle
	Navigate(ctx context.Context, url string) error

	// OpenComposer locates and activates the compose-message affordance
	OpenComposer(ctx context.Context) error

	// TypeMessage commits the message text into the input surface
	TypeMessage(ctx context.Context, content string) error

	// Submit triggers message submission
	Submit(ctx context.Context) error

	// VerifyCleared re-inspects the input surface; a cleared or absent
	// surface means the site accepted the message
	VerifyCleared(ctx context.Context) (bool, error)

	// ProfileHTML returns the profile page markup for metadata extraction
	ProfileHTML(ctx context.Context) (string, error)
}

// InteractorFactory builds an Interactor bound to a borrowed browser
// context for the duration of one attempt.
type InteractorFactory func(browserCtx context.Context) Interactor

// chromedpInteractor implements Interactor against a live browser context
type chromedpInteractor struct {
	browserCtx context.Context
	config     *common.DispatchConfig
	session    *common.SessionConfig
}

// NewChromedpInteractor returns the production interactor factory
func NewChromedpInteractor(config *common.DispatchConfig, session *common.SessionConfig) InteractorFactory {
	return func(browserCtx context.Context) Interactor {
		return &chromedpInteractor{
			browserCtx: browserCtx,
			config:     config,
			session:    session,
		}
	}
}

func (i *chromedpInteractor) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := i.withTimeout(ctx, i.session.NavigationTimeout.Std())
	defer cancel()

	return chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (i *chromedpInteractor) OpenComposer(ctx context.Context) error {
	elemCtx, cancel := i.withTimeout(ctx, i.session.ElementTimeout.Std())
	defer cancel()

	var disabledVal string
	var hasDisabled bool
	err := chromedp.Run(elemCtx,
		chromedp.WaitVisible(target.ComposeButton, chromedp.ByQuery),
		chromedp.AttributeValue(target.ComposeButton, "disabled", &disabledVal, &hasDisabled, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("compose button not available: %w", err)
	}
	if hasDisabled {
		return fmt.Errorf("compose button is disabled")
	}

	return chromedp.Run(elemCtx,
		chromedp.Click(target.ComposeButton, chromedp.ByQuery),
		chromedp.Sleep(i.config.SettleDelay.Std()),
		chromedp.WaitVisible(target.ComposeInput, chromedp.ByQuery),
	)
}

// TypeMessage types character-at-a-time with a randomized inter-character
// delay. The humanized pacing is deliberate: burst input trips the target
// site's anti-automation heuristics.
func (i *chromedpInteractor) TypeMessage(ctx context.Context, content string) error {
	typeCtx, cancel := i.withTimeout(ctx, i.session.NavigationTimeout.Std())
	defer cancel()

	actions := make([]chromedp.Action, 0, len(content)*2)
	for _, ch := range content {
		actions = append(actions,
			chromedp.SendKeys(target.ComposeInput, string(ch), chromedp.ByQuery),
			chromedp.Sleep(i.typingDelay()),
		)
	}
	return chromedp.Run(typeCtx, actions...)
}

func (i *chromedpInteractor) Submit(ctx context.Context) error {
	submitCtx, cancel := i.withTimeout(ctx, i.session.ElementTimeout.Std())
	defer cancel()

	return chromedp.Run(submitCtx,
		chromedp.KeyEvent("\r"),
		chromedp.Sleep(i.config.SettleDelay.Std()),
	)
}

func (i *chromedpInteractor) VerifyCleared(ctx context.Context) (bool, error) {
	verifyCtx, cancel := i.withTimeout(ctx, i.session.ElementTimeout.Std())
	defer cancel()

	var cleared bool
	err := chromedp.Run(verifyCtx,
		chromedp.Evaluate(fmt.Sprintf(
			`(() => { const el = document.querySelector(%q); return !el || el.textContent.trim() === ''; })()`,
			target.ComposeInput,
		), &cleared),
	)
	if err != nil {
		return false, err
	}
	return cleared, nil
}

func (i *chromedpInteractor) ProfileHTML(ctx context.Context) (string, error) {
	htmlCtx, cancel := i.withTimeout(ctx, i.session.ElementTimeout.Std())
	defer cancel()

	var html string
	err := chromedp.Run(htmlCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}
	return html, nil
}

// withTimeout bounds one step on the borrowed browser context while still
// honoring cancellation from the caller's context.
func (i *chromedpInteractor) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	bounded, cancel := context.WithTimeout(i.browserCtx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return bounded, func() {
		stop()
		cancel()
	}
}

func (i *chromedpInteractor) typingDelay() time.Duration {
	min := i.config.TypingDelayMin.Std()
	max := i.config.TypingDelayMax.Std()
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}
