package browser

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnavailable      = errors.New("browser runtime unavailable")
	ErrPageClosed       = errors.New("page closed")
	ErrOperationTimeout = errors.New("operation timeout")
	ErrNoClipboard      = errors.New("clipboard write not observed")
	ErrNoPage           = errors.New("no page matches")
)

// PageError wraps a failed page operation with the selector it targeted.
type PageError struct {
	Op       string
	Selector string
	Err      error
}

func (e *PageError) Error() string {
	if e.Selector != "" {
		return fmt.Sprintf("page %s %q: %v", e.Op, e.Selector, e.Err)
	}
	return fmt.Sprintf("page %s: %v", e.Op, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// WrapPageError wraps err with operation context. A nil err stays nil.
func WrapPageError(op, selector string, err error) error {
	if err == nil {
		return nil
	}
	return &PageError{Op: op, Selector: selector, Err: err}
}

// IsTimeout returns true if the error came from an expired deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrOperationTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsRetryableError returns true if the error might succeed on the next poll.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPageClosed) || errors.Is(err, ErrUnavailable) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
