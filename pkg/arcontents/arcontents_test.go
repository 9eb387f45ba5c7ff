/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package arcontents

import (
	"context"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/errors/status"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/securekey/arcontents-gateway/mocks/mockconfig"
	"github.com/securekey/arcontents-gateway/mocks/mocknetwork"
	"github.com/securekey/arcontents-gateway/pkg/invoker"
	"github.com/securekey/arcontents-gateway/pkg/session"
	"github.com/securekey/arcontents-gateway/pkg/wallet"
	"github.com/securekey/arcontents-gateway/util/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// the chaincode emits "Status" for the status field
const recordJSON = `{"docType":"ar_contents","pid":"p1","owner":"alice","price":100,"Status":"on sale"}`

const historyJSON = `[
  {"record":{"docType":"ar_contents","pid":"p1","owner":"alice","price":100,"Status":"on sale"},"txId":"tx1","timestamp":"2021-03-01T10:00:00Z","isDelete":false},
  {"record":{"docType":"ar_contents","pid":"p1","owner":"bob","price":100,"Status":"on sale"},"txId":"tx2","timestamp":"2021-03-02T10:00:00Z","isDelete":false}
]`

func newTestClient(t *testing.T) (*Client, *mocknetwork.MockContract, *mocknetwork.MockConnector) {
	dir, err := ioutil.TempDir("", "arcontents")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := wallet.Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put("alice", &api.Credential{Certificate: []byte("cert"), PrivateKey: []byte("key"), MSPID: "Org1MSP"}))

	cfg := mockconfig.New()
	contract := mocknetwork.NewContract()
	connector := mocknetwork.NewConnector(cfg.ChannelName, cfg.ContractName, contract)

	return New(session.NewManager(store, connector, cfg), invoker.New(cfg), cfg), contract, connector
}

func TestCreate(t *testing.T) {
	c, contract, connector := newTestClient(t)

	require.NoError(t, c.Create(context.Background(), "alice", "p1", "alice", "100", "on sale"))

	calls := contract.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Submit)
	assert.Equal(t, InitFunction, calls[0].Name)
	assert.Equal(t, []string{"p1", "alice", "100", "on sale"}, calls[0].Args)

	conns := connector.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, "alice", conns[0].Label)
	assert.Equal(t, 1, conns[0].CloseCount())
}

func TestCreateRejected(t *testing.T) {
	c, contract, connector := newTestClient(t)
	contract.Submit = func(name string, args ...string) ([]byte, error) {
		return nil, status.New(status.ChaincodeStatus, 500, "This AR Contents already exists: p1", nil)
	}

	err := c.Create(context.Background(), "alice", "p1", "alice", "100", "on sale")
	assert.True(t, errors.HasCode(err, errors.TransactionRejected))
	assert.Equal(t, 1, connector.Connections()[0].CloseCount())
}

func TestCreateTimeoutKeepsConnectionOpen(t *testing.T) {
	dir, err := ioutil.TempDir("", "arcontents")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	store, err := wallet.Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put("alice", &api.Credential{Certificate: []byte("cert"), PrivateKey: []byte("key"), MSPID: "Org1MSP"}))

	cfg := mockconfig.New()
	cfg.Timeouts[api.SubmitTimeout] = 50 * time.Millisecond

	release := make(chan struct{})
	done := make(chan struct{})
	contract := mocknetwork.NewContract()
	contract.Submit = func(name string, args ...string) ([]byte, error) {
		defer close(done)
		<-release
		return nil, nil
	}
	connector := mocknetwork.NewConnector(cfg.ChannelName, cfg.ContractName, contract)
	c := New(session.NewManager(store, connector, cfg), invoker.New(cfg), cfg)

	err = c.Create(context.Background(), "alice", "p1", "alice", "100", "on sale")
	assert.True(t, errors.HasCode(err, errors.OrderingFailed))

	conns := connector.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, 0, conns[0].CloseCount(), "connection closed while the submit was still running")

	close(release)
	<-done
	require.Eventually(t, func() bool { return conns[0].CloseCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestCreateUnknownIdentity(t *testing.T) {
	c, contract, connector := newTestClient(t)

	err := c.Create(context.Background(), "mallory", "p1", "alice", "100", "on sale")
	assert.True(t, errors.HasCode(err, errors.IdentityNotFound))
	assert.Empty(t, contract.Calls())
	assert.Empty(t, connector.Connections())
}

func TestMissingPID(t *testing.T) {
	c, contract, _ := newTestClient(t)
	ctx := context.Background()

	assert.True(t, errors.HasCode(c.Create(ctx, "alice", "", "alice", "1", "x"), errors.MissingRequiredParameterError))
	assert.True(t, errors.HasCode(c.Transfer(ctx, "alice", "", "bob"), errors.MissingRequiredParameterError))
	_, err := c.Read(ctx, "alice", "")
	assert.True(t, errors.HasCode(err, errors.MissingRequiredParameterError))
	_, err = c.History(ctx, "alice", "")
	assert.True(t, errors.HasCode(err, errors.MissingRequiredParameterError))
	assert.Empty(t, contract.Calls())
}

func TestTransfer(t *testing.T) {
	c, contract, _ := newTestClient(t)

	require.NoError(t, c.Transfer(context.Background(), "alice", "p1", "bob"))

	calls := contract.Calls()
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Submit)
	assert.Equal(t, TransferFunction, calls[0].Name)
	assert.Equal(t, []string{"p1", "bob"}, calls[0].Args)
}

func TestRead(t *testing.T) {
	c, contract, _ := newTestClient(t)
	contract.Eval = func(name string, args ...string) ([]byte, error) {
		return []byte(recordJSON), nil
	}

	payload, err := c.Read(context.Background(), "alice", "p1")
	require.NoError(t, err)
	assert.Equal(t, recordJSON, string(payload))

	record, err := DecodeRecord(payload)
	require.NoError(t, err)
	assert.Equal(t, &ARContents{DocType: "ar_contents", PID: "p1", Owner: "alice", Price: 100, Status: "on sale"}, record)

	calls := contract.Calls()
	require.Len(t, calls, 1)
	assert.False(t, calls[0].Submit)
	assert.Equal(t, ReadFunction, calls[0].Name)
}

func TestReadKeepsUndeclaredFields(t *testing.T) {
	c, contract, _ := newTestClient(t)
	const withExtra = `{"pid":"p1","owner":"alice","price":100,"Status":"on sale","royalty":5}`
	contract.Eval = func(name string, args ...string) ([]byte, error) {
		return []byte(withExtra), nil
	}

	payload, err := c.Read(context.Background(), "alice", "p1")
	require.NoError(t, err)
	assert.JSONEq(t, withExtra, string(payload))
}

func TestReadInvalidPayload(t *testing.T) {
	c, contract, _ := newTestClient(t)
	contract.Eval = func(name string, args ...string) ([]byte, error) {
		return []byte(`{"pid":"p1","price":"expensive"}`), nil
	}

	_, err := c.Read(context.Background(), "alice", "p1")
	assert.True(t, errors.HasCode(err, errors.QueryFailed))

	contract.Eval = func(name string, args ...string) ([]byte, error) {
		return []byte(`not json`), nil
	}
	_, err = c.Read(context.Background(), "alice", "p1")
	assert.True(t, errors.HasCode(err, errors.QueryFailed))
}

func TestReadNotFound(t *testing.T) {
	c, contract, _ := newTestClient(t)
	contract.Eval = func(name string, args ...string) ([]byte, error) {
		return nil, status.New(status.ChaincodeStatus, 500, "the asset does not exists: p9", nil)
	}

	_, err := c.Read(context.Background(), "alice", "p9")
	assert.True(t, errors.HasCode(err, errors.QueryFailed))
}

func TestHistory(t *testing.T) {
	c, contract, _ := newTestClient(t)
	contract.Eval = func(name string, args ...string) ([]byte, error) {
		return []byte(historyJSON), nil
	}

	payload, err := c.History(context.Background(), "alice", "p1")
	require.NoError(t, err)
	assert.Equal(t, historyJSON, string(payload))

	records, err := DecodeHistory(payload)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "tx1", records[0].TxID)
	assert.Equal(t, "alice", records[0].Record.Owner)
	assert.Equal(t, "on sale", records[0].Record.Status)
	assert.Equal(t, "bob", records[1].Record.Owner)
	assert.Equal(t, 2021, records[1].Timestamp.Year())
}

func TestHistoryEmpty(t *testing.T) {
	c, contract, _ := newTestClient(t)

	for _, payload := range []string{"null", "", " ", "[]"} {
		p := payload
		contract.Eval = func(name string, args ...string) ([]byte, error) {
			return []byte(p), nil
		}

		history, err := c.History(context.Background(), "alice", "p1")
		require.NoError(t, err, "payload %q", p)
		assert.Equal(t, "[]", string(history))

		records, err := DecodeHistory(history)
		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	}
}

func TestHistoryInvalidPayload(t *testing.T) {
	c, contract, _ := newTestClient(t)
	contract.Eval = func(name string, args ...string) ([]byte, error) {
		return []byte(`{"txId":"tx1"}`), nil
	}

	_, err := c.History(context.Background(), "alice", "p1")
	assert.True(t, errors.HasCode(err, errors.QueryFailed))
}
