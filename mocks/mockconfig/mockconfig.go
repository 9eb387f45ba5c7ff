/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mockconfig

import (
	"path/filepath"
	"time"

	"github.com/securekey/arcontents-gateway/api"
)

// MockConfig implements api.Config with settable fields
type MockConfig struct {
	BasePath              string
	ListenAddress         string
	StaticDir             string
	WalletPath            string
	ConnectionProfilePath string
	ChannelName           string
	ContractName          string
	DiscoveryAsLocalhost  bool
	CAInstance            string
	OrgName               string
	MspID                 string
	KeyStorePath          string
	AdminEnrollment       api.AdminEnrollment
	Timeouts              map[api.TimeoutType]time.Duration
	MetricsEnabled        bool
	MetricsPrefix         string
	LogLevel              string
}

// New returns a MockConfig with the test network defaults
func New() *MockConfig {
	return &MockConfig{
		ListenAddress:        ":3000",
		WalletPath:           "wallet",
		ChannelName:          "mychannel",
		ContractName:         "arcontents",
		DiscoveryAsLocalhost: true,
		CAInstance:           "ca.org1.example.com",
		OrgName:              "Org1",
		MspID:                "Org1MSP",
		AdminEnrollment:      api.AdminEnrollment{EnrollID: "admin", EnrollSecret: "adminpw"},
		Timeouts:             make(map[api.TimeoutType]time.Duration),
		MetricsEnabled:       true,
		MetricsPrefix:        "arcgw",
		LogLevel:             "info",
	}
}

// GetConfigPath resolves path against BasePath
func (c *MockConfig) GetConfigPath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.BasePath == "" {
		return path
	}
	return filepath.Join(c.BasePath, path)
}

// GetListenAddress ...
func (c *MockConfig) GetListenAddress() string { return c.ListenAddress }

// GetStaticDir ...
func (c *MockConfig) GetStaticDir() string { return c.StaticDir }

// GetWalletPath ...
func (c *MockConfig) GetWalletPath() string { return c.WalletPath }

// GetConnectionProfilePath ...
func (c *MockConfig) GetConnectionProfilePath() string { return c.ConnectionProfilePath }

// GetChannelName ...
func (c *MockConfig) GetChannelName() string { return c.ChannelName }

// GetContractName ...
func (c *MockConfig) GetContractName() string { return c.ContractName }

// IsDiscoveryAsLocalhost ...
func (c *MockConfig) IsDiscoveryAsLocalhost() bool { return c.DiscoveryAsLocalhost }

// GetCAInstance ...
func (c *MockConfig) GetCAInstance() string { return c.CAInstance }

// GetOrgName ...
func (c *MockConfig) GetOrgName() string { return c.OrgName }

// GetMspID ...
func (c *MockConfig) GetMspID() string { return c.MspID }

// GetKeyStorePath ...
func (c *MockConfig) GetKeyStorePath() string { return c.KeyStorePath }

// GetAdminEnrollment ...
func (c *MockConfig) GetAdminEnrollment() api.AdminEnrollment { return c.AdminEnrollment }

// TimeoutOrDefault returns the timeout set in Timeouts, or one second
func (c *MockConfig) TimeoutOrDefault(timeoutType api.TimeoutType) time.Duration {
	if t, ok := c.Timeouts[timeoutType]; ok {
		return t
	}
	return time.Second
}

// IsMetricsEnabled ...
func (c *MockConfig) IsMetricsEnabled() bool { return c.MetricsEnabled }

// GetMetricsPrefix ...
func (c *MockConfig) GetMetricsPrefix() string { return c.MetricsPrefix }

// GetLogLevel ...
func (c *MockConfig) GetLogLevel() string { return c.LogLevel }
