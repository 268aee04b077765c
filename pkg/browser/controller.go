package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// ErrNotLaunched is returned when a command is issued before Launch.
var ErrNotLaunched = errors.New("browser not launched")

// Controller drives a single Chrome tab. It satisfies the engine Backend
// interface. All commands are serialized through the DevTools connection, so
// the controller is safe for concurrent use.
type Controller struct {
	cfg    Config
	logger zerolog.Logger

	mu          sync.RWMutex
	tab         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	actionsPerformed atomic.Int64
}

// NewController creates an unlaunched controller.
func NewController(cfg Config, logger zerolog.Logger) *Controller {
	return &Controller{cfg: cfg.withDefaults(), logger: logger}
}

// Launch starts Chrome and opens the working tab. It is an error to launch
// twice without an intervening Close.
func (c *Controller) Launch(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tab != nil {
		return errors.New("browser already launched")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.cfg.Headless),
		chromedp.WindowSize(c.cfg.WindowWidth, c.cfg.WindowHeight),
	)
	if c.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(c.cfg.UserAgent))
	}
	if c.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	tab, cancelTab := chromedp.NewContext(allocCtx)

	launchCtx, cancel := context.WithTimeout(tab, c.cfg.NavigationTimeout)
	defer cancel()
	if err := chromedp.Run(launchCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	c.tab = tab
	c.cancelTab = cancelTab
	c.cancelAlloc = cancelAlloc
	c.logger.Info().
		Bool("headless", c.cfg.Headless).
		Int("width", c.cfg.WindowWidth).
		Int("height", c.cfg.WindowHeight).
		Msg("browser launched")
	return nil
}

// Close shuts the browser down. It is idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tab == nil {
		return nil
	}
	c.cancelTab()
	c.cancelAlloc()
	c.tab = nil
	c.cancelTab = nil
	c.cancelAlloc = nil
	c.logger.Info().Int64("actions_performed", c.actionsPerformed.Load()).Msg("browser closed")
	return nil
}

// ActionsPerformed returns the number of commands executed since launch.
func (c *Controller) ActionsPerformed() int64 {
	return c.actionsPerformed.Load()
}

// IsAvailable reports whether the browser is launched and responsive.
func (c *Controller) IsAvailable(ctx context.Context) bool {
	c.mu.RLock()
	tab := c.tab
	c.mu.RUnlock()
	return tab != nil && tab.Err() == nil
}

// IsPageLoaded reports whether the tab holds a navigated document.
func (c *Controller) IsPageLoaded(ctx context.Context) bool {
	url, err := c.CurrentURL(ctx)
	if err != nil {
		return false
	}
	return url != "" && url != "about:blank"
}

// Navigate loads the URL and waits for the document body to be ready.
func (c *Controller) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, c.cfg.NavigationTimeout)
	defer cancel()
	return c.run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// CurrentURL returns the URL of the current page.
func (c *Controller) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := c.run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// Title returns the title of the current page.
func (c *Controller) Title(ctx context.Context) (string, error) {
	var title string
	if err := c.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// Click waits for the selector to be visible and clicks it.
func (c *Controller) Click(ctx context.Context, selector string) error {
	return c.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

// InputText clears the matching element and types text into it.
func (c *Controller) InputText(ctx context.Context, selector, text string) error {
	return c.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	)
}

// ExtractData reads the requested attribute from the matching element.
// "text", "html", and "value" are handled specially; anything else is read
// as a DOM attribute.
func (c *Controller) ExtractData(ctx context.Context, selector, attribute string) (string, error) {
	var out string
	var action chromedp.Action
	switch strings.ToLower(attribute) {
	case "", "text":
		action = chromedp.Text(selector, &out, chromedp.ByQuery)
	case "html":
		action = chromedp.OuterHTML(selector, &out, chromedp.ByQuery)
	case "value":
		action = chromedp.Value(selector, &out, chromedp.ByQuery)
	default:
		var ok bool
		if err := c.run(ctx, chromedp.AttributeValue(selector, attribute, &out, &ok, chromedp.ByQuery)); err != nil {
			return "", err
		}
		if !ok {
			return "", fmt.Errorf("element %q has no attribute %q", selector, attribute)
		}
		return out, nil
	}
	if err := c.run(ctx, action); err != nil {
		return "", err
	}
	return out, nil
}

// WaitForSelector waits until the selector is visible or the timeout
// elapses. A timeout is not an error: it reports found=false.
func (c *Controller) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := c.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return false, nil
	}
	return false, err
}

// Scroll scrolls the window by amount pixels in the given direction.
func (c *Controller) Scroll(ctx context.Context, direction string, amount int) error {
	var dx, dy int
	switch direction {
	case "up":
		dy = -amount
	case "down":
		dy = amount
	case "left":
		dx = -amount
	case "right":
		dx = amount
	default:
		return fmt.Errorf("unsupported scroll direction %q", direction)
	}
	expr := fmt.Sprintf("window.scrollBy(%d, %d)", dx, dy)
	return c.run(ctx, chromedp.Evaluate(expr, nil))
}

// EvaluateScript runs JavaScript on the page and returns the JSON-encoded
// result.
func (c *Controller) EvaluateScript(ctx context.Context, script string) (string, error) {
	var raw json.RawMessage
	if err := c.run(ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return "", err
	}
	return string(raw), nil
}

// run executes chromedp actions on the working tab, honoring the caller's
// context for cancellation and deadlines.
func (c *Controller) run(ctx context.Context, actions ...chromedp.Action) error {
	c.mu.RLock()
	tab := c.tab
	c.mu.RUnlock()
	if tab == nil {
		return ErrNotLaunched
	}

	runCtx, cancel := context.WithCancel(tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	c.actionsPerformed.Add(1)
	return nil
}
