/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"runtime/debug"

	"github.com/gorilla/mux"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/securekey/arcontents-gateway/pkg/metrics"
	"github.com/securekey/arcontents-gateway/tracing"
	"github.com/securekey/arcontents-gateway/util/errors"
	"github.com/uber-go/tally/v4"
)

var logger = logging.NewLogger("arcgateway")

// Enroller registers and enrolls identities
type Enroller interface {
	EnrollAdmin(ctx context.Context) error
	RegisterAndEnrollUser(ctx context.Context, label, affiliation string) error
}

// IdentityLister lists the labels held in the wallet
type IdentityLister interface {
	List() ([]string, error)
}

// Ledger runs the arcontents contract functions as a wallet identity.
// Read and History return the contract payload unchanged.
type Ledger interface {
	Create(ctx context.Context, label, pid, owner, price, status string) error
	Read(ctx context.Context, label, pid string) (json.RawMessage, error)
	Transfer(ctx context.Context, label, pid, newOwner string) error
	History(ctx context.Context, label, pid string) (json.RawMessage, error)
}

// Deps are the collaborators of the server, built once at startup
type Deps struct {
	Config     api.Config
	Identities IdentityLister
	Enrollment Enroller
	Ledger     Ledger
	// Health is served on /healthz when set
	Health http.Handler
	// Metrics defaults to a no-op provider
	Metrics *metrics.Provider
}

// Server is the HTTP front end of the gateway
type Server struct {
	deps       Deps
	router     *mux.Router
	httpServer *http.Server
}

// route is an envelope endpoint. failure builds the envelope returned when
// run fails or panics.
type route struct {
	path    string
	method  string
	run     func(ctx context.Context, p params) (*Envelope, error)
	failure func(p params) *Envelope
}

// New creates the server and registers its routes
func New(deps Deps) *Server {
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewWithScope(tally.NoopScope, nil)
	}

	s := &Server{
		deps:   deps,
		router: mux.NewRouter(),
	}

	for _, r := range s.routes() {
		s.router.HandleFunc(r.path, s.handle(r)).Methods(r.method)
	}

	if deps.Health != nil {
		s.router.Handle("/healthz", deps.Health).Methods(http.MethodGet)
	}
	if h := deps.Metrics.HTTPHandler(); h != nil {
		s.router.Handle("/metrics", h).Methods(http.MethodGet)
	}
	if dir := deps.Config.GetStaticDir(); dir != "" {
		s.registerStatic(dir)
	}

	s.httpServer = &http.Server{
		Addr:         deps.Config.GetListenAddress(),
		Handler:      s.router,
		ReadTimeout:  deps.Config.TimeoutOrDefault(api.ServerReadTimeout),
		WriteTimeout: deps.Config.TimeoutOrDefault(api.ServerWriteTimeout),
	}

	return s
}

// ServeHTTP dispatches the request to its route
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	logger.Infof("Gateway server is started: %s", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrapf(errors.GeneralError, err, "failed to serve on [%s]", s.httpServer.Addr)
	}
	return nil
}

// Shutdown stops accepting requests and waits for the active ones until ctx is done
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Infof("Gateway server is shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) registerStatic(dir string) {
	logger.Infof("Serving static files from [%s]", dir)

	s.router.PathPrefix("/public/").Handler(http.StripPrefix("/public/", http.FileServer(http.Dir(dir)))).Methods(http.MethodGet)
	s.router.Path("/").Methods(http.MethodGet).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}

func (s *Server) handle(r route) http.HandlerFunc {
	endpoint := s.deps.Metrics.Endpoint(r.path)

	return func(w http.ResponseWriter, req *http.Request) {
		done := endpoint.Start()
		span, ctx := tracing.StartServerSpan(req, req.Method+" "+r.path)

		env, err := s.execute(req.WithContext(ctx), r)

		tracing.FinishWithError(span, err)
		done(!env.Succeeded())
		writeEnvelope(w, env)
	}
}

// execute always returns an envelope; err is the cause of a fail envelope
func (s *Server) execute(req *http.Request, r route) (env *Envelope, err error) {
	p, err := parseParams(req)
	if err != nil {
		logger.Warnf("%s end -- failed to parse request: %s", r.path, err)
		return r.failure(params{}), err
	}

	defer func() {
		if rec := recover(); rec != nil {
			logger.Errorf("%s end -- recovered from panic: %v\n%s", r.path, rec, debug.Stack())
			env = r.failure(p)
			err = errors.Errorf(errors.PanicError, "%s panicked: %v", r.path, rec)
		}
	}()

	env, err = r.run(req.Context(), p)
	if err != nil {
		logFailure(r.path, err)
		return r.failure(p), err
	}

	logger.Infof("%s end -- success", r.path)
	return env, nil
}

func logFailure(path string, err error) {
	if e, ok := errors.GetError(err); ok {
		logger.Errorf("%s end -- failed: %s", path, e.GenerateLogMsg())
		return
	}
	logger.Errorf("%s end -- failed: %s", path, err)
}
