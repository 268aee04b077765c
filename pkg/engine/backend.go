package engine

import (
	"context"
	"time"
)

// Backend is the environment the engine drives: one asynchronous primitive
// per capability tag. Implementations interact with a shared, serialization-
// sensitive resource (a browser page), so every call may fail; the engine
// treats any returned error as a recoverable failure subject to the retry
// policy unless it is classified otherwise.
type Backend interface {
	// IsAvailable reports whether the environment is ready for commands.
	IsAvailable(ctx context.Context) bool

	// IsPageLoaded reports whether the current document finished loading.
	IsPageLoaded(ctx context.Context) bool

	// Navigate loads the given URL.
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the URL of the current page.
	CurrentURL(ctx context.Context) (string, error)

	// Title returns the title of the current page.
	Title(ctx context.Context) (string, error)

	// Click finds the element matching the selector and clicks it.
	Click(ctx context.Context, selector string) error

	// InputText clears the element matching the selector and types text into it.
	InputText(ctx context.Context, selector, text string) error

	// ExtractData reads the given attribute ("text", "html", "value", or a
	// DOM attribute name) from the element matching the selector.
	ExtractData(ctx context.Context, selector, attribute string) (string, error)

	// WaitForSelector waits until the selector matches a visible element or
	// the timeout elapses, reporting whether it was found.
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) (bool, error)

	// Scroll scrolls the page in the given direction by amount pixels.
	Scroll(ctx context.Context, direction string, amount int) error

	// EvaluateScript runs JavaScript on the current page and returns the
	// stringified result.
	EvaluateScript(ctx context.Context, script string) (string, error)
}
