/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/securekey/arcontents-gateway/config"
	"github.com/securekey/arcontents-gateway/pkg/arcontents"
	"github.com/securekey/arcontents-gateway/pkg/ca"
	"github.com/securekey/arcontents-gateway/pkg/enrollment"
	"github.com/securekey/arcontents-gateway/pkg/healthcheck"
	"github.com/securekey/arcontents-gateway/pkg/invoker"
	"github.com/securekey/arcontents-gateway/pkg/metrics"
	"github.com/securekey/arcontents-gateway/pkg/server"
	"github.com/securekey/arcontents-gateway/pkg/session"
	"github.com/securekey/arcontents-gateway/pkg/session/fabgateway"
	"github.com/securekey/arcontents-gateway/pkg/wallet"
	"github.com/securekey/arcontents-gateway/util/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const startDescription = `
Start the gateway. The gateway answers on server.listenAddress until it
receives SIGINT or SIGTERM, then waits up to server.shutdownTimeout for the
active requests to complete.`

func newStartCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the gateway",
		Long:  startDescription,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}

			gw, err := newGateway(cfg)
			if err != nil {
				return err
			}
			defer gw.close()

			signals := make(chan os.Signal, 1)
			signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(signals)

			return gw.run(signals)
		},
	}
}

// loadConfig reads the gateway config from the --config location and
// applies the --logging-level override
func loadConfig(v *viper.Viper) (api.Config, error) {
	cfg, err := config.New(v.GetString(configFlag))
	if err != nil {
		return nil, err
	}

	if levelName := v.GetString(loggingLevelFlag); levelName != "" {
		level, err := logging.LogLevel(levelName)
		if err != nil {
			return nil, errors.Wrapf(errors.ConfigError, err, "invalid logging level [%s]", levelName)
		}
		logging.SetLevel(config.LoggerModule, level)
	}

	return cfg, nil
}

type gateway struct {
	config   api.Config
	caClient *ca.Client
	metrics  *metrics.Provider
	server   *server.Server
}

// newGateway builds every component of the gateway once
func newGateway(cfg api.Config) (*gateway, error) {
	store, err := wallet.Open(cfg.GetWalletPath())
	if err != nil {
		return nil, err
	}

	caClient, err := ca.New(cfg)
	if err != nil {
		return nil, err
	}

	connector, err := fabgateway.New(cfg)
	if err != nil {
		caClient.Close()
		return nil, err
	}

	m := metrics.New(cfg)
	sessions := session.NewManager(store, connector, cfg)

	srv := server.New(server.Deps{
		Config:     cfg,
		Identities: store,
		Enrollment: enrollment.New(caClient, store, cfg),
		Ledger:     arcontents.New(sessions, invoker.New(cfg), cfg),
		Health:     healthcheck.New(store, cfg),
		Metrics:    m,
	})

	return &gateway{
		config:   cfg,
		caClient: caClient,
		metrics:  m,
		server:   srv,
	}, nil
}

// run serves until a signal arrives or the server fails
func (g *gateway) run(signals <-chan os.Signal) error {
	done := make(chan error, 1)
	go func() {
		done <- g.server.Start()
	}()

	select {
	case err := <-done:
		return err
	case sig := <-signals:
		logger.Infof("Got signal: %s", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), g.config.TimeoutOrDefault(api.ShutdownTimeout))
	defer cancel()

	if err := g.server.Shutdown(ctx); err != nil {
		return errors.Wrap(errors.GeneralError, err, "graceful shutdown failed")
	}

	logger.Infof("Gateway is exiting")
	return <-done
}

func (g *gateway) close() {
	if err := g.metrics.Close(); err != nil {
		logger.Warnf("Failed to close metrics: %s", err)
	}
	g.caClient.Close()
}
