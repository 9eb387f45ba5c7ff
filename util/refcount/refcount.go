/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package refcount

import (
	"sync/atomic"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
)

var logger = logging.NewLogger("arcgateway")

// Closer closes the resource
type Closer func()

// ReferenceCounter guards a resource that must be closed exactly once,
// after Close has been called and every acquired reference is released.
type ReferenceCounter struct {
	name     string
	refCount int32
	closed   uint32
	released uint32
	closer   Closer
}

// New returns a new reference counter for the named resource
func New(name string, closer Closer) *ReferenceCounter {
	return &ReferenceCounter{
		name:   name,
		closer: closer,
	}
}

// Acquire adds a reference. It fails once Close has been called.
func (c *ReferenceCounter) Acquire() bool {
	for {
		if c.isClosed() {
			logger.Debugf("Cannot acquire [%s] since it is already closed", c.name)
			return false
		}
		refCount := c.Count()
		if refCount < 0 {
			return false
		}
		if c.setCount(refCount, refCount+1) {
			return true
		}
	}
}

// Release releases a reference
func (c *ReferenceCounter) Release() bool {
	for {
		refCount := c.Count()
		if refCount <= 0 {
			logger.Warnf("Cannot release [%s] since the refcount is %d", c.name, refCount)
			return false
		}

		newRefCount := refCount - 1
		if c.setCount(refCount, newRefCount) {
			if newRefCount == 0 {
				c.checkAndCloseResource()
			}
			return true
		}
	}
}

// Close marks the resource closed. The closer runs now if there are no
// outstanding references, otherwise when the last one is released.
func (c *ReferenceCounter) Close() bool {
	if !atomic.CompareAndSwapUint32(&c.closed, 0, 1) {
		logger.Debugf("[%s] already closed", c.name)
		return false
	}

	logger.Debugf("Closing [%s] with %d outstanding references", c.name, c.Count())
	c.checkAndCloseResource()

	return true
}

// Released returns true once the closer has run
func (c *ReferenceCounter) Released() bool {
	return atomic.LoadUint32(&c.released) == 1
}

// Count returns the number of outstanding references, or -1 once released
func (c *ReferenceCounter) Count() int32 {
	return atomic.LoadInt32(&c.refCount)
}

func (c *ReferenceCounter) checkAndCloseResource() {
	if !c.isClosed() {
		return
	}

	// the count moves from 0 to -1 only once, so the closer runs once
	if c.setCount(0, -1) {
		logger.Debugf("Last reference to [%s] removed - closing", c.name)
		atomic.StoreUint32(&c.released, 1)
		c.closer()
	}
}

func (c *ReferenceCounter) isClosed() bool {
	return atomic.LoadUint32(&c.closed) == 1
}

func (c *ReferenceCounter) setCount(expectValue, value int32) bool {
	return atomic.CompareAndSwapInt32(&c.refCount, expectValue, value)
}
