/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"context"
)

// Contract is a chaincode resolved on a channel
type Contract interface {
	// SubmitTransaction endorses, orders and commits the transaction
	SubmitTransaction(name string, args ...string) ([]byte, error)
	// EvaluateTransaction queries a single peer without committing anything
	EvaluateTransaction(name string, args ...string) ([]byte, error)
}

// Network is a channel on the ledger network
type Network interface {
	GetContract(name string) (Contract, error)
}

// Connection is an open connection to the ledger network
type Connection interface {
	GetNetwork(name string) (Network, error)
	Close()
}

// Connector opens connections to the ledger network
type Connector interface {
	// Connect opens a connection that acts as the identity with the given label
	Connect(ctx context.Context, label string, credential *Credential) (Connection, error)
}
