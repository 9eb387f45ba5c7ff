/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/securekey/arcontents-gateway/pkg/wallet"
	"github.com/securekey/arcontents-gateway/util/errors"
	"github.com/securekey/arcontents-gateway/util/refcount"
)

var logger = logging.NewLogger("arcgateway")

// Session is a connection to the network acting as one identity,
// resolved to a contract on a channel. It is valid only inside WithSession.
type Session struct {
	label        string
	channelName  string
	contractName string
	contract     api.Contract
	ref          *refcount.ReferenceCounter
}

// Contract returns the resolved contract. Every transaction holds a reference
// on the connection while it runs, so a call that outlives its caller keeps
// the connection open until the SDK returns. Calls made after the session
// has ended fail with ConnectionFailed.
func (s *Session) Contract() api.Contract {
	return &sessionContract{contract: s.contract, ref: s.ref, label: s.label}
}

// Label returns the wallet label of the identity the session acts as
func (s *Session) Label() string {
	return s.label
}

// ChannelName returns the channel the contract was resolved on
func (s *Session) ChannelName() string {
	return s.channelName
}

// ContractName returns the name of the contract
func (s *Session) ContractName() string {
	return s.contractName
}

// Manager opens request scoped sessions for identities held in the wallet
type Manager struct {
	store     *wallet.Store
	connector api.Connector
	config    api.Config
}

// NewManager returns a new session manager
func NewManager(store *wallet.Store, connector api.Connector, config api.Config) *Manager {
	return &Manager{
		store:     store,
		connector: connector,
		config:    config,
	}
}

// WithSession connects as the identity with the given label, resolves the
// contract on the channel and calls fn with the session. The connection is
// closed exactly once, whether fn succeeds, fails or panics: when
// WithSession returns, or later when a transaction fn abandoned completes.
func (m *Manager) WithSession(ctx context.Context, label, channelName, contractName string, fn func(*Session) error) (err error) {
	cred, err := m.store.Get(label)
	if err != nil {
		return err
	}

	conn, err := m.connect(ctx, label, cred)
	if err != nil {
		return err
	}

	ref := refcount.New(fmt.Sprintf("%s@%s", label, channelName), conn.Close)
	defer ref.Close()

	if !ref.Acquire() {
		return errors.Errorf(errors.ConnectionFailed, "connection for [%s] closed before use", label)
	}
	defer ref.Release()

	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Recovered from panic in session for [%s]: %v\n%s", label, r, debug.Stack())
			err = errors.Errorf(errors.PanicError, "session for [%s] panicked: %v", label, r)
		}
	}()

	network, err := conn.GetNetwork(channelName)
	if err != nil {
		return errors.Wrapf(errors.ChannelNotFound, err, "channel [%s] not found", channelName)
	}

	contract, err := network.GetContract(contractName)
	if err != nil {
		return errors.Wrapf(errors.ContractNotFound, err, "contract [%s] not found on channel [%s]", contractName, channelName)
	}
	if contract == nil {
		return errors.Errorf(errors.ContractNotFound, "contract [%s] not found on channel [%s]", contractName, channelName)
	}

	logger.Debugf("Opened session for [%s] on [%s:%s]", label, channelName, contractName)

	return fn(&Session{
		label:        label,
		channelName:  channelName,
		contractName: contractName,
		contract:     contract,
		ref:          ref,
	})
}

type sessionContract struct {
	contract api.Contract
	ref      *refcount.ReferenceCounter
	label    string
}

func (c *sessionContract) SubmitTransaction(name string, args ...string) ([]byte, error) {
	if !c.ref.Acquire() {
		return nil, errors.Errorf(errors.ConnectionFailed, "session for [%s] has ended, [%s] was not submitted", c.label, name)
	}
	defer c.ref.Release()

	return c.contract.SubmitTransaction(name, args...)
}

func (c *sessionContract) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	if !c.ref.Acquire() {
		return nil, errors.Errorf(errors.ConnectionFailed, "session for [%s] has ended, [%s] was not evaluated", c.label, name)
	}
	defer c.ref.Release()

	return c.contract.EvaluateTransaction(name, args...)
}

type connectResult struct {
	conn api.Connection
	err  error
}

func (m *Manager) connect(ctx context.Context, label string, cred *api.Credential) (api.Connection, error) {
	timeout := m.config.TimeoutOrDefault(api.ConnectTimeout)
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan connectResult, 1)
	go func() {
		conn, err := m.connector.Connect(ctx, label, cred)
		done <- connectResult{conn: conn, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, errors.Wrapf(errors.ConnectionFailed, r.err, "failed to connect as [%s]", label)
		}
		if r.conn == nil {
			return nil, errors.Errorf(errors.ConnectionFailed, "no connection returned for [%s]", label)
		}
		return r.conn, nil
	case <-ctx.Done():
		go closeLate(label, done)
		return nil, errors.Wrapf(errors.ConnectionFailed, ctx.Err(), "connect as [%s] abandoned", label)
	}
}

// closeLate closes a connection that was established after its caller gave up
func closeLate(label string, done <-chan connectResult) {
	r := <-done
	if r.conn != nil {
		logger.Warnf("Closing connection for [%s] that completed after the connect deadline", label)
		r.conn.Close()
	}
}
