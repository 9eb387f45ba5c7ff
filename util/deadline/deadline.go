/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package deadline

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrTimeout is returned when the call did not complete within its timeout
var ErrTimeout = errors.New("deadline exceeded")

// Run calls fn on its own goroutine and waits until it returns, the timeout
// elapses or ctx is done. A zero timeout only waits on ctx. fn keeps running
// in the background after a timeout; its result is discarded.
func Run(ctx context.Context, timeout time.Duration, fn func() error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Wrapf(ErrTimeout, "call did not complete within %s", timeout)
		}
		return errors.Wrap(ctx.Err(), "call abandoned")
	}
}

// IsTimeout returns true if err was returned by Run because the deadline passed
func IsTimeout(err error) bool {
	return errors.Cause(err) == ErrTimeout
}
