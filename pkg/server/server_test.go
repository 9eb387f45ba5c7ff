/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/mocktracer"
	"github.com/pkg/errors"
	"github.com/securekey/arcontents-gateway/mocks/mockca"
	"github.com/securekey/arcontents-gateway/mocks/mockconfig"
	"github.com/securekey/arcontents-gateway/mocks/mocknetwork"
	"github.com/securekey/arcontents-gateway/pkg/arcontents"
	"github.com/securekey/arcontents-gateway/pkg/enrollment"
	"github.com/securekey/arcontents-gateway/pkg/invoker"
	"github.com/securekey/arcontents-gateway/pkg/metrics"
	"github.com/securekey/arcontents-gateway/pkg/session"
	"github.com/securekey/arcontents-gateway/pkg/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally/v4"
)

type testGateway struct {
	server    *Server
	ca        *mockca.MockCAClient
	contract  *mocknetwork.MockContract
	connector *mocknetwork.MockConnector
	config    *mockconfig.MockConfig
	scope     tally.TestScope
}

func newTestGateway(t *testing.T) *testGateway {
	dir, err := ioutil.TempDir("", "server")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	store, err := wallet.Open(filepath.Join(dir, "wallet"))
	require.NoError(t, err)

	cfg := mockconfig.New()
	ca := mockca.New()
	contract := mocknetwork.NewContract()
	connector := mocknetwork.NewConnector(cfg.ChannelName, cfg.ContractName, contract)
	scope := tally.NewTestScope("arcgw", nil)

	sessions := session.NewManager(store, connector, cfg)

	s := New(Deps{
		Config:     cfg,
		Identities: store,
		Enrollment: enrollment.New(ca, store, cfg),
		Ledger:     arcontents.New(sessions, invoker.New(cfg), cfg),
		Metrics:    metrics.NewWithScope(scope, nil),
	})

	return &testGateway{server: s, ca: ca, contract: contract, connector: connector, config: cfg, scope: scope}
}

func (g *testGateway) postForm(t *testing.T, path string, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	g.server.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	return rr
}

func (g *testGateway) postJSON(t *testing.T, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	g.server.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	return rr
}

func (g *testGateway) get(t *testing.T, path string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	g.server.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr
}

func (g *testGateway) enrollAlice(t *testing.T) {
	assert.JSONEq(t, `{"result":"success","id":"admin"}`, g.postForm(t, "/admin", nil).Body.String())
	assert.JSONEq(t, `{"result":"success","id":"alice","affiliation":"eng"}`,
		g.postForm(t, "/user", url.Values{"name": {"alice"}, "department": {"eng"}}).Body.String())
}

func TestAdminThenUserScenario(t *testing.T) {
	g := newTestGateway(t)

	g.enrollAlice(t)

	// registering the same user again is a no-op
	rr := g.postForm(t, "/user", url.Values{"name": {"alice"}, "department": {"eng"}})
	assert.JSONEq(t, `{"result":"success","id":"alice","affiliation":"eng"}`, rr.Body.String())
	assert.Equal(t, 1, g.ca.RegisterCalls())

	// enrolling the admin again is a no-op
	assert.JSONEq(t, `{"result":"success","id":"admin"}`, g.postForm(t, "/admin", nil).Body.String())
	assert.Equal(t, 2, g.ca.EnrollCalls())

	assert.JSONEq(t, `{"result":"success","id":"bob","affiliation":"eng"}`,
		g.postJSON(t, "/user", `{"name":"bob","department":"eng"}`).Body.String())

	assert.JSONEq(t, `{"result":"success","id":["admin","alice","bob"]}`, g.get(t, "/user/list").Body.String())
}

func TestUserWithoutAdmin(t *testing.T) {
	g := newTestGateway(t)

	rr := g.postForm(t, "/user", url.Values{"name": {"alice"}, "department": {"eng"}})
	assert.JSONEq(t, `{"result":"fail","id":"alice","affiliation":"eng"}`, rr.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	assert.JSONEq(t, `{"result":"success","id":[]}`, g.get(t, "/user/list").Body.String())
}

func TestUserEnvelopeFields(t *testing.T) {
	g := newTestGateway(t)

	rr := g.postForm(t, "/user", url.Values{})
	assert.JSONEq(t, `{"result":"fail","id":"","affiliation":""}`, rr.Body.String())

	assert.JSONEq(t, `{"result":"success","id":"admin"}`, g.postForm(t, "/admin", nil).Body.String())

	rr = g.postForm(t, "/user", url.Values{"name": {"carol"}})
	assert.JSONEq(t, `{"result":"success","id":"carol","affiliation":""}`, rr.Body.String())
}

func TestAdminFailure(t *testing.T) {
	g := newTestGateway(t)
	g.ca.EnrollErr = errors.New("CA unavailable")

	assert.JSONEq(t, `{"result":"fail","id":"admin"}`, g.postForm(t, "/admin", nil).Body.String())
}

func TestListFailure(t *testing.T) {
	g := newTestGateway(t)
	g.server.deps.Identities = failingLister{}

	assert.JSONEq(t, `{"result":"fail","id":"/user/list"}`, g.get(t, "/user/list").Body.String())
}

func TestCreateUnknownCert(t *testing.T) {
	g := newTestGateway(t)

	rr := g.postForm(t, "/arcontents", url.Values{
		"cert": {"nobody"}, "pid": {"p1"}, "owner": {"alice"}, "price": {"100"}, "status": {"on sale"},
	})
	assert.JSONEq(t, `{"result":"fail","message":"tx has NOT submitted"}`, rr.Body.String())
	assert.Empty(t, g.connector.Connections(), "no connection may be opened for an unknown identity")
	assert.Empty(t, g.contract.Calls())
}

func TestCreateARContents(t *testing.T) {
	g := newTestGateway(t)
	g.enrollAlice(t)

	rr := g.postJSON(t, "/arcontents", `{"cert":"alice","pid":"p1","owner":"alice","price":100,"status":"on sale"}`)
	assert.JSONEq(t, `{"result":"success","message":"tx has submitted"}`, rr.Body.String())

	calls := g.contract.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, arcontents.InitFunction, calls[0].Name)
	assert.Equal(t, []string{"p1", "alice", "100", "on sale"}, calls[0].Args)

	conns := g.connector.Connections()
	require.Len(t, conns, 1)
	assert.Equal(t, 1, conns[0].CloseCount())
}

func TestCreateRejected(t *testing.T) {
	g := newTestGateway(t)
	g.enrollAlice(t)
	g.contract.Submit = func(name string, args ...string) ([]byte, error) {
		return nil, errors.New("This AR Contents already exists: p1")
	}

	rr := g.postForm(t, "/arcontents", url.Values{"cert": {"alice"}, "pid": {"p1"}, "owner": {"alice"}, "price": {"100"}})
	assert.JSONEq(t, `{"result":"fail","message":"tx has NOT submitted"}`, rr.Body.String())
	assert.Equal(t, 1, g.connector.Connections()[0].CloseCount())
}

func TestTransferARContents(t *testing.T) {
	g := newTestGateway(t)
	g.enrollAlice(t)

	rr := g.postForm(t, "/arcontents/tx", url.Values{"cert": {"alice"}, "pid": {"p1"}, "owner": {"bob"}})
	assert.JSONEq(t, `{"result":"success","message":"tx has submitted"}`, rr.Body.String())

	calls := g.contract.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, arcontents.TransferFunction, calls[0].Name)
	assert.Equal(t, []string{"p1", "bob"}, calls[0].Args)

	rr = g.postForm(t, "/arcontents/tx", url.Values{"cert": {"nobody"}, "pid": {"p1"}, "owner": {"bob"}})
	assert.JSONEq(t, `{"result":"fail","message":"tx has NOT submitted"}`, rr.Body.String())
}

func TestReadARContents(t *testing.T) {
	g := newTestGateway(t)
	g.enrollAlice(t)
	g.contract.Eval = func(name string, args ...string) ([]byte, error) {
		if args[0] != "p1" {
			return nil, errors.New("the asset does not exists: " + args[0])
		}
		return []byte(`{"docType":"ar_contents","pid":"p1","owner":"alice","price":100,"Status":"on sale"}`), nil
	}

	rr := g.get(t, "/arcontents?pid=p1&cert=alice")
	assert.JSONEq(t, `{"result":"success","message":{"docType":"ar_contents","pid":"p1","owner":"alice","price":100,"Status":"on sale"}}`, rr.Body.String())

	rr = g.get(t, "/arcontents?pid=p9&cert=alice")
	assert.JSONEq(t, `{"result":"fail","message":"ReadARContents has a error"}`, rr.Body.String())
}

func TestARContentsHistory(t *testing.T) {
	g := newTestGateway(t)
	g.enrollAlice(t)
	g.contract.Eval = func(name string, args ...string) ([]byte, error) {
		return []byte(`[{"record":{"pid":"p1","owner":"alice","price":100,"Status":"on sale"},"txId":"tx1","timestamp":"2021-03-01T10:00:00Z","isDelete":false}]`), nil
	}

	rr := g.get(t, "/arcontents/history?pid=p1&cert=alice")
	assert.JSONEq(t, `{"result":"success","message":[{"record":{"pid":"p1","owner":"alice","price":100,"Status":"on sale"},"txId":"tx1","timestamp":"2021-03-01T10:00:00Z","isDelete":false}]}`, rr.Body.String())

	g.contract.Eval = func(name string, args ...string) ([]byte, error) {
		return []byte("null"), nil
	}
	assert.JSONEq(t, `{"result":"success","message":[]}`, g.get(t, "/arcontents/history?pid=p2&cert=alice").Body.String())

	assert.JSONEq(t, `{"result":"fail","message":"GetARContentsHistory has a error"}`, g.get(t, "/arcontents/history?pid=p1&cert=nobody").Body.String())
}

func TestPanicRecovered(t *testing.T) {
	g := newTestGateway(t)
	g.server.deps.Ledger = panickingLedger{}

	rr := g.postForm(t, "/arcontents", url.Values{"cert": {"alice"}, "pid": {"p1"}})
	assert.JSONEq(t, `{"result":"fail","message":"tx has NOT submitted"}`, rr.Body.String())

	rr = g.get(t, "/arcontents?pid=p1&cert=alice")
	assert.JSONEq(t, `{"result":"fail","message":"ReadARContents has a error"}`, rr.Body.String())
}

func TestInvalidBody(t *testing.T) {
	g := newTestGateway(t)

	rr := g.postJSON(t, "/user", `{"name":`)
	assert.JSONEq(t, `{"result":"fail","id":"","affiliation":""}`, rr.Body.String())

	rr = g.postJSON(t, "/arcontents", `{"cert":"alice","pid":["p1"]}`)
	assert.JSONEq(t, `{"result":"fail","message":"tx has NOT submitted"}`, rr.Body.String())
}

func TestEndpointMetrics(t *testing.T) {
	g := newTestGateway(t)

	g.postForm(t, "/user", url.Values{"name": {"alice"}})
	g.postForm(t, "/admin", nil)

	var userRequests, userFailures, adminRequests int64
	for _, c := range g.scope.Snapshot().Counters() {
		switch {
		case c.Name() == "arcgw.requests" && c.Tags()["endpoint"] == "/user":
			userRequests = c.Value()
		case c.Name() == "arcgw.failures" && c.Tags()["endpoint"] == "/user":
			userFailures = c.Value()
		case c.Name() == "arcgw.requests" && c.Tags()["endpoint"] == "/admin":
			adminRequests = c.Value()
		}
	}
	assert.Equal(t, int64(1), userRequests)
	assert.Equal(t, int64(1), userFailures)
	assert.Equal(t, int64(1), adminRequests)
}

func TestRequestSpans(t *testing.T) {
	tracer := mocktracer.New()
	previous := opentracing.GlobalTracer()
	opentracing.SetGlobalTracer(tracer)
	defer opentracing.SetGlobalTracer(previous)

	g := newTestGateway(t)
	g.enrollAlice(t)
	tracer.Reset()

	g.postForm(t, "/arcontents/tx", url.Values{"cert": {"alice"}, "pid": {"p1"}, "owner": {"bob"}})
	g.postForm(t, "/arcontents/tx", url.Values{"cert": {"nobody"}, "pid": {"p1"}, "owner": {"bob"}})

	spans := tracer.FinishedSpans()
	require.Len(t, spans, 3)

	assert.Equal(t, "submit "+arcontents.TransferFunction, spans[0].OperationName)
	assert.Equal(t, spans[1].SpanContext.SpanID, spans[0].ParentID)
	assert.Equal(t, "POST /arcontents/tx", spans[1].OperationName)
	assert.Nil(t, spans[1].Tag("error"))
	assert.Equal(t, true, spans[2].Tag("error"))
}

func TestStaticFiles(t *testing.T) {
	dir, err := ioutil.TempDir("", "public")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>arcontents</html>"), 0600))
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log('arcontents')"), 0600))

	cfg := mockconfig.New()
	cfg.StaticDir = dir
	s := New(Deps{Config: cfg, Health: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})})

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "arcontents")

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/public/app.js", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "console.log")

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestShutdownBeforeStart(t *testing.T) {
	s := New(Deps{Config: mockconfig.New()})
	require.NoError(t, s.Shutdown(context.Background()))
}

type failingLister struct{}

func (failingLister) List() ([]string, error) {
	return nil, errors.New("wallet directory removed")
}

type panickingLedger struct{}

func (panickingLedger) Create(ctx context.Context, label, pid, owner, price, status string) error {
	panic("create")
}

func (panickingLedger) Read(ctx context.Context, label, pid string) (json.RawMessage, error) {
	panic("read")
}

func (panickingLedger) Transfer(ctx context.Context, label, pid, newOwner string) error {
	panic("transfer")
}

func (panickingLedger) History(ctx context.Context, label, pid string) (json.RawMessage, error) {
	panic("history")
}
