/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mocknetwork

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/securekey/arcontents-gateway/api"
)

// Handler produces the result of a transaction
type Handler func(name string, args ...string) ([]byte, error)

// Call records a transaction sent to a MockContract
type Call struct {
	Submit bool
	Name   string
	Args   []string
}

// MockContract records transactions and answers them with the handlers
type MockContract struct {
	mutex  sync.Mutex
	calls  []Call
	Submit Handler
	Eval   Handler
}

// NewContract returns a contract answering every transaction with an empty payload
func NewContract() *MockContract {
	return &MockContract{}
}

// SubmitTransaction records the call and invokes the Submit handler
func (c *MockContract) SubmitTransaction(name string, args ...string) ([]byte, error) {
	c.record(Call{Submit: true, Name: name, Args: args})
	if c.Submit == nil {
		return nil, nil
	}
	return c.Submit(name, args...)
}

// EvaluateTransaction records the call and invokes the Eval handler
func (c *MockContract) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	c.record(Call{Name: name, Args: args})
	if c.Eval == nil {
		return nil, nil
	}
	return c.Eval(name, args...)
}

// Calls returns the recorded calls
func (c *MockContract) Calls() []Call {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	calls := make([]Call, len(c.calls))
	copy(calls, c.calls)
	return calls
}

func (c *MockContract) record(call Call) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.calls = append(c.calls, call)
}

// MockNetwork is a channel holding contracts
type MockNetwork struct {
	Contracts map[string]api.Contract
}

// GetContract returns the named contract
func (n *MockNetwork) GetContract(name string) (api.Contract, error) {
	contract, ok := n.Contracts[name]
	if !ok {
		return nil, errors.Errorf("chaincode [%s] not found", name)
	}
	return contract, nil
}

// MockConnection is an open connection
type MockConnection struct {
	Label      string
	networks   map[string]*MockNetwork
	closeCount int32
}

// GetNetwork returns the named channel
func (c *MockConnection) GetNetwork(name string) (api.Network, error) {
	network, ok := c.networks[name]
	if !ok {
		return nil, errors.Errorf("channel [%s] not found", name)
	}
	return network, nil
}

// Close closes the connection
func (c *MockConnection) Close() {
	atomic.AddInt32(&c.closeCount, 1)
}

// CloseCount returns the number of times Close was called
func (c *MockConnection) CloseCount() int {
	return int(atomic.LoadInt32(&c.closeCount))
}

// MockConnector opens MockConnections to a fixed set of channels
type MockConnector struct {
	mutex       sync.Mutex
	networks    map[string]*MockNetwork
	connections []*MockConnection

	ConnectErr error
	// Delay is applied before the connection is returned
	Delay time.Duration
}

// NewConnector returns a connector exposing contract on channel
func NewConnector(channel, contractName string, contract api.Contract) *MockConnector {
	return &MockConnector{
		networks: map[string]*MockNetwork{
			channel: {Contracts: map[string]api.Contract{contractName: contract}},
		},
	}
}

// Connect opens a connection
func (c *MockConnector) Connect(ctx context.Context, label string, credential *api.Credential) (api.Connection, error) {
	if c.Delay > 0 {
		time.Sleep(c.Delay)
	}
	if c.ConnectErr != nil {
		return nil, c.ConnectErr
	}
	if credential == nil {
		return nil, errors.New("credential is required")
	}

	conn := &MockConnection{Label: label, networks: c.networks}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.connections = append(c.connections, conn)

	return conn, nil
}

// Connections returns the connections opened so far
func (c *MockConnector) Connections() []*MockConnection {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	conns := make([]*MockConnection, len(c.connections))
	copy(conns, c.connections)
	return conns
}
