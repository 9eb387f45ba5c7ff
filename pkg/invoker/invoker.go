/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invoker

import (
	"context"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/securekey/arcontents-gateway/tracing"
	"github.com/securekey/arcontents-gateway/util/deadline"
	"github.com/securekey/arcontents-gateway/util/errors"
)

var logger = logging.NewLogger("arcgateway")

// Mode selects how an invocation reaches the ledger
type Mode int

const (
	// Submit endorses, orders and commits the transaction
	Submit Mode = iota
	// Evaluate queries a peer; nothing is written
	Evaluate
)

func (m Mode) String() string {
	switch m {
	case Submit:
		return "submit"
	case Evaluate:
		return "evaluate"
	default:
		return "unknown"
	}
}

// Invocation is a single contract function call
type Invocation struct {
	Name string
	Args []string
	Mode Mode
}

// Invoker sends transactions to a contract with deadlines and
// classifies the failures
type Invoker struct {
	config api.Config
}

// New returns a new Invoker
func New(config api.Config) *Invoker {
	return &Invoker{config: config}
}

// Invoke dispatches the invocation on its mode
func (i *Invoker) Invoke(ctx context.Context, contract api.Contract, invocation Invocation) ([]byte, error) {
	switch invocation.Mode {
	case Submit:
		return i.Submit(ctx, contract, invocation.Name, invocation.Args...)
	case Evaluate:
		return i.Evaluate(ctx, contract, invocation.Name, invocation.Args...)
	default:
		return nil, errors.Errorf(errors.GeneralError, "unsupported invocation mode [%d]", invocation.Mode)
	}
}

// Submit sends the transaction for endorsement and ordering and waits for the commit.
// Endorsement rejections are returned as TransactionRejected, anything else as OrderingFailed.
func (i *Invoker) Submit(ctx context.Context, contract api.Contract, name string, args ...string) ([]byte, error) {
	if err := validate(contract, name); err != nil {
		return nil, err
	}

	logger.Debugf("Submitting [%s] with args %v", name, args)

	span, ctx := tracing.StartClientSpan(ctx, "submit "+name)

	var payload []byte
	err := deadline.Run(ctx, i.config.TimeoutOrDefault(api.SubmitTimeout), func() error {
		var e error
		payload, e = contract.SubmitTransaction(name, args...)
		return e
	})
	if err != nil {
		err = classifySubmitError(name, err)
		tracing.FinishWithError(span, err)
		return nil, err
	}
	span.Finish()

	logger.Debugf("Transaction [%s] has been submitted", name)
	return payload, nil
}

// Evaluate queries the contract. Failures are returned as QueryFailed.
func (i *Invoker) Evaluate(ctx context.Context, contract api.Contract, name string, args ...string) ([]byte, error) {
	if err := validate(contract, name); err != nil {
		return nil, err
	}

	logger.Debugf("Evaluating [%s] with args %v", name, args)

	span, ctx := tracing.StartClientSpan(ctx, "evaluate "+name)

	var payload []byte
	err := deadline.Run(ctx, i.config.TimeoutOrDefault(api.EvaluateTimeout), func() error {
		var e error
		payload, e = contract.EvaluateTransaction(name, args...)
		return e
	})
	if err != nil {
		err = errors.WithMessage(errors.QueryFailed, err, "evaluate ["+name+"] failed")
		tracing.FinishWithError(span, err)
		return nil, err
	}
	span.Finish()

	return payload, nil
}

func validate(contract api.Contract, name string) error {
	if contract == nil {
		return errors.New(errors.MissingRequiredParameterError, "contract is required")
	}
	if name == "" {
		return errors.New(errors.MissingRequiredParameterError, "transaction name is required")
	}
	return nil
}

func classifySubmitError(name string, err error) error {
	if deadline.IsTimeout(err) {
		return errors.WithMessage(errors.OrderingFailed, err, "submit ["+name+"] timed out")
	}

	if s, ok := status.FromError(err); ok {
		switch s.Group {
		case status.ChaincodeStatus, status.EndorserServerStatus:
			return errors.WithMessage(errors.TransactionRejected, err, "transaction ["+name+"] was rejected")
		default:
			logger.Debugf("Submit [%s] failed with status group [%s] code [%d]", name, s.Group, s.Code)
		}
	}

	return errors.WithMessage(errors.OrderingFailed, err, "transaction ["+name+"] was not committed")
}
