/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package arcontents

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/securekey/arcontents-gateway/pkg/invoker"
	"github.com/securekey/arcontents-gateway/pkg/session"
	"github.com/securekey/arcontents-gateway/util/errors"
)

var logger = logging.NewLogger("arcgateway")

// Functions of the arcontents contract
const (
	InitFunction     = "InitARContents"
	ReadFunction     = "ReadARContents"
	TransferFunction = "TransferARContents"
	HistoryFunction  = "GetARContentsHistory"
)

const emptyHistory = "[]"

// ARContents is an AR plug-in recorded on the ledger. The contract
// writes the status under "Status".
type ARContents struct {
	DocType string `json:"docType,omitempty"`
	PID     string `json:"pid"`
	Owner   string `json:"owner"`
	Price   int    `json:"price"`
	Status  string `json:"Status"`
}

// HistoryRecord is one committed change of an AR plug-in
type HistoryRecord struct {
	Record    *ARContents `json:"record"`
	TxID      string      `json:"txId"`
	Timestamp time.Time   `json:"timestamp"`
	IsDelete  bool        `json:"isDelete"`
}

// Sessions opens request scoped sessions
type Sessions interface {
	WithSession(ctx context.Context, label, channelName, contractName string, fn func(*session.Session) error) error
}

// Client calls the arcontents contract on behalf of wallet identities
type Client struct {
	sessions     Sessions
	invoker      *invoker.Invoker
	channelName  string
	contractName string
}

// New returns a client for the channel and contract in the config
func New(sessions Sessions, inv *invoker.Invoker, config api.Config) *Client {
	return &Client{
		sessions:     sessions,
		invoker:      inv,
		channelName:  config.GetChannelName(),
		contractName: config.GetContractName(),
	}
}

// Create records a new AR plug-in. price is passed to the contract as given.
func (c *Client) Create(ctx context.Context, label, pid, owner, price, status string) error {
	if pid == "" {
		return errors.New(errors.MissingRequiredParameterError, "pid is required")
	}
	return c.invoke(ctx, label, invoker.Invocation{
		Name: InitFunction,
		Args: []string{pid, owner, price, status},
		Mode: invoker.Submit,
	}, nil)
}

// Transfer changes the owner of an AR plug-in
func (c *Client) Transfer(ctx context.Context, label, pid, newOwner string) error {
	if pid == "" {
		return errors.New(errors.MissingRequiredParameterError, "pid is required")
	}
	return c.invoke(ctx, label, invoker.Invocation{
		Name: TransferFunction,
		Args: []string{pid, newOwner},
		Mode: invoker.Submit,
	}, nil)
}

// Read returns the current state of an AR plug-in as emitted by the contract.
// The payload is checked against the record schema but passed on unchanged.
func (c *Client) Read(ctx context.Context, label, pid string) (json.RawMessage, error) {
	if pid == "" {
		return nil, errors.New(errors.MissingRequiredParameterError, "pid is required")
	}

	var payload []byte
	err := c.invoke(ctx, label, invoker.Invocation{
		Name: ReadFunction,
		Args: []string{pid},
		Mode: invoker.Evaluate,
	}, &payload)
	if err != nil {
		return nil, err
	}

	if err := validateJSON(recordSchemaLoader, payload); err != nil {
		return nil, errors.Wrapf(errors.QueryFailed, err, "invalid %s payload", ReadFunction)
	}
	return json.RawMessage(payload), nil
}

// History returns every committed change of an AR plug-in as emitted by the
// contract. An unknown pid has an empty history, returned as [].
func (c *Client) History(ctx context.Context, label, pid string) (json.RawMessage, error) {
	if pid == "" {
		return nil, errors.New(errors.MissingRequiredParameterError, "pid is required")
	}

	var payload []byte
	err := c.invoke(ctx, label, invoker.Invocation{
		Name: HistoryFunction,
		Args: []string{pid},
		Mode: invoker.Evaluate,
	}, &payload)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage(emptyHistory), nil
	}

	if err := validateJSON(historySchemaLoader, payload); err != nil {
		return nil, errors.Wrapf(errors.QueryFailed, err, "invalid %s payload", HistoryFunction)
	}
	return json.RawMessage(payload), nil
}

// DecodeRecord decodes a payload returned by Read
func DecodeRecord(payload json.RawMessage) (*ARContents, error) {
	record := &ARContents{}
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, errors.Wrapf(errors.QueryFailed, err, "failed to decode %s payload", ReadFunction)
	}
	return record, nil
}

// DecodeHistory decodes a payload returned by History
func DecodeHistory(payload json.RawMessage) ([]HistoryRecord, error) {
	records := []HistoryRecord{}
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, errors.Wrapf(errors.QueryFailed, err, "failed to decode %s payload", HistoryFunction)
	}
	if records == nil {
		records = []HistoryRecord{}
	}
	return records, nil
}

func (c *Client) invoke(ctx context.Context, label string, invocation invoker.Invocation, payload *[]byte) error {
	logger.Debugf("Invoking [%s] as [%s] on [%s:%s]", invocation.Name, label, c.channelName, c.contractName)

	return c.sessions.WithSession(ctx, label, c.channelName, c.contractName, func(s *session.Session) error {
		result, err := c.invoker.Invoke(ctx, s.Contract(), invocation)
		if err != nil {
			return err
		}
		if payload != nil {
			*payload = result
		}
		return nil
	})
}
