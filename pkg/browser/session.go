package browser

import "context"

// Runtime owns the connection to a browser and hands out the chat page.
type Runtime interface {
	Page(ctx context.Context) (Page, error)
	Close() error
}
