/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"path/filepath"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/securekey/arcontents-gateway/util/configcache"
	"github.com/securekey/arcontents-gateway/util/errors"
	"github.com/spf13/viper"
)

const (
	configFileName = "gateway"
	cmdRootPrefix  = "arcgw"
	devConfigPath  = "./config/sampleconfig"

	// LoggerModule is the logging module shared by all gateway packages
	LoggerModule = "arcgateway"
)

var logger = logging.NewLogger(LoggerModule)

var defaultLogLevel = "info"

var cache = configcache.New(configFileName, cmdRootPrefix, devConfigPath)

var defaultTimeouts = map[api.TimeoutType]time.Duration{
	api.CATimeout:          30 * time.Second,
	api.ConnectTimeout:     30 * time.Second,
	api.SubmitTimeout:      60 * time.Second,
	api.EvaluateTimeout:    30 * time.Second,
	api.CommitTimeout:      60 * time.Second,
	api.ServerReadTimeout:  30 * time.Second,
	api.ServerWriteTimeout: 2 * time.Minute,
	api.ShutdownTimeout:    10 * time.Second,
}

var timeoutKeys = map[api.TimeoutType]string{
	api.CATimeout:          "timeouts.ca",
	api.ConnectTimeout:     "timeouts.connect",
	api.SubmitTimeout:      "timeouts.submit",
	api.EvaluateTimeout:    "timeouts.evaluate",
	api.CommitTimeout:      "network.commitTimeout",
	api.ServerReadTimeout:  "server.readTimeout",
	api.ServerWriteTimeout: "server.writeTimeout",
	api.ShutdownTimeout:    "server.shutdownTimeout",
}

// config implements api.Config
type config struct {
	gatewayConfig *viper.Viper
}

// New returns the gateway config read from the given location. The location is a
// directory containing gateway.yaml or the path of the config file itself; when
// empty, $ARCGW_CFG_PATH and then ./config/sampleconfig are tried.
func New(configPath string) (api.Config, error) {
	gatewayConfig, err := cache.Get(configPath)
	if err != nil {
		return nil, err
	}
	return newConfig(gatewayConfig)
}

// FromViper returns a config backed by an already loaded viper instance
func FromViper(v *viper.Viper) (api.Config, error) {
	if v == nil {
		return nil, errors.New(errors.ConfigError, "viper instance is required")
	}
	return newConfig(v)
}

func newConfig(v *viper.Viper) (*config, error) {
	c := &config{gatewayConfig: v}
	if err := c.initializeLogging(); err != nil {
		return nil, err
	}
	return c, nil
}

// Helper function to initialize logging
func (c *config) initializeLogging() error {
	logLevel := c.GetLogLevel()

	level, err := logging.LogLevel(logLevel)
	if err != nil {
		return errors.Wrapf(errors.ConfigError, err, "Error initializing log level [%s]", logLevel)
	}

	logging.SetLevel(LoggerModule, level)
	logger.Debugf("Gateway logging initialized. Log level: %s", logging.GetLevel(LoggerModule))

	return nil
}

// GetConfigPath returns the absolute value of the given path that is relative to the config file
// For example, if the config file is at /opt/gateway/gateway.yaml,
// calling GetConfigPath("wallet") will return /opt/gateway/wallet
func (c *config) GetConfigPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}

	used := c.gatewayConfig.ConfigFileUsed()
	if used == "" {
		return path
	}

	return filepath.Join(filepath.Dir(used), path)
}

// GetListenAddress returns the address the HTTP server listens on
func (c *config) GetListenAddress() string {
	return c.stringOrDefault("server.listenAddress", ":3000")
}

// GetStaticDir returns the directory served under /public, empty when disabled
func (c *config) GetStaticDir() string {
	return c.GetConfigPath(c.gatewayConfig.GetString("server.staticDir"))
}

// GetWalletPath returns the directory of the file system wallet
func (c *config) GetWalletPath() string {
	return c.GetConfigPath(c.stringOrDefault("wallet.path", "wallet"))
}

// GetConnectionProfilePath returns the path of the network connection profile
func (c *config) GetConnectionProfilePath() string {
	return c.GetConfigPath(c.gatewayConfig.GetString("network.connectionProfile"))
}

// GetChannelName returns the channel the contract is deployed on
func (c *config) GetChannelName() string {
	return c.stringOrDefault("network.channel", "mychannel")
}

// GetContractName returns the chaincode name
func (c *config) GetContractName() string {
	return c.stringOrDefault("network.contract", "arcontents")
}

// IsDiscoveryAsLocalhost returns true if discovered peer addresses should be mapped to localhost
func (c *config) IsDiscoveryAsLocalhost() bool {
	if !c.gatewayConfig.IsSet("network.asLocalhost") {
		return true
	}
	return c.gatewayConfig.GetBool("network.asLocalhost")
}

// GetCAInstance returns the certificate authority name in the connection profile
func (c *config) GetCAInstance() string {
	return c.stringOrDefault("ca.instance", "ca.org1.example.com")
}

// GetOrgName returns the organization name in the connection profile
func (c *config) GetOrgName() string {
	return c.stringOrDefault("ca.org", "Org1")
}

// GetMspID returns the MSP ID stamped on enrolled credentials
func (c *config) GetMspID() string {
	return c.stringOrDefault("ca.mspID", "Org1MSP")
}

// GetKeyStorePath returns the key store used by the SDK when enrolling
func (c *config) GetKeyStorePath() string {
	return c.GetConfigPath(c.gatewayConfig.GetString("ca.keystorePath"))
}

// GetAdminEnrollment returns the bootstrap admin id and secret
func (c *config) GetAdminEnrollment() api.AdminEnrollment {
	return api.AdminEnrollment{
		EnrollID:     c.stringOrDefault("ca.admin.enrollID", "admin"),
		EnrollSecret: c.stringOrDefault("ca.admin.enrollSecret", "adminpw"),
	}
}

// TimeoutOrDefault returns the configured timeout, or the default if unset or invalid
func (c *config) TimeoutOrDefault(timeoutType api.TimeoutType) time.Duration {
	key, ok := timeoutKeys[timeoutType]
	if !ok {
		logger.Warnf("Unknown timeout type: %d", timeoutType)
		return 0
	}

	timeout := c.gatewayConfig.GetDuration(key)
	if timeout <= 0 {
		return defaultTimeouts[timeoutType]
	}
	return timeout
}

// IsMetricsEnabled returns true if /metrics is exposed
func (c *config) IsMetricsEnabled() bool {
	if !c.gatewayConfig.IsSet("metrics.enabled") {
		return true
	}
	return c.gatewayConfig.GetBool("metrics.enabled")
}

// GetMetricsPrefix returns the metrics name prefix
func (c *config) GetMetricsPrefix() string {
	return c.stringOrDefault("metrics.prefix", "arcgw")
}

// GetLogLevel returns the configured log level
func (c *config) GetLogLevel() string {
	return c.stringOrDefault("logging.level", defaultLogLevel)
}

func (c *config) stringOrDefault(key, def string) string {
	if v := c.gatewayConfig.GetString(key); v != "" {
		return v
	}
	return def
}
