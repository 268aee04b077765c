// Package browser provides a Chrome-backed implementation of the engine
// environment, driven over the DevTools protocol via chromedp.
package browser

import "time"

const (
	// DefaultWindowWidth is the browser window width in pixels.
	DefaultWindowWidth = 1280

	// DefaultWindowHeight is the browser window height in pixels.
	DefaultWindowHeight = 720

	// DefaultNavigationTimeout bounds a single page load.
	DefaultNavigationTimeout = 30 * time.Second
)

// Config configures the browser controller.
type Config struct {
	// Headless runs the browser without a visible window.
	Headless bool `yaml:"headless" json:"headless"`

	// WindowWidth is the window width in pixels.
	WindowWidth int `yaml:"window_width" json:"window_width" validate:"omitempty,gt=0"`

	// WindowHeight is the window height in pixels.
	WindowHeight int `yaml:"window_height" json:"window_height" validate:"omitempty,gt=0"`

	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string `yaml:"user_agent" json:"user_agent"`

	// ExecPath points at the Chrome binary. Empty means auto-discover.
	ExecPath string `yaml:"exec_path" json:"exec_path"`

	// NavigationTimeout bounds a single page load.
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
}

// DefaultConfig returns the default browser configuration.
func DefaultConfig() Config {
	return Config{
		Headless:          true,
		WindowWidth:       DefaultWindowWidth,
		WindowHeight:      DefaultWindowHeight,
		NavigationTimeout: DefaultNavigationTimeout,
	}
}

// withDefaults fills zero fields with the defaults.
func (c Config) withDefaults() Config {
	if c.WindowWidth <= 0 {
		c.WindowWidth = DefaultWindowWidth
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = DefaultWindowHeight
	}
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	return c
}
