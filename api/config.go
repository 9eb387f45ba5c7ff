/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"time"
)

// TimeoutType enumerates the deadlines applied to calls on external systems
type TimeoutType int

// Timeouts used by the gateway
const (
	CATimeout TimeoutType = iota
	ConnectTimeout
	SubmitTimeout
	EvaluateTimeout
	CommitTimeout
	ServerReadTimeout
	ServerWriteTimeout
	ShutdownTimeout
)

// AdminEnrollment holds the bootstrap credentials of the CA admin
type AdminEnrollment struct {
	EnrollID     string
	EnrollSecret string
}

// Config configuration interface
type Config interface {
	GetConfigPath(path string) string
	GetListenAddress() string
	GetStaticDir() string
	GetWalletPath() string
	GetConnectionProfilePath() string
	GetChannelName() string
	GetContractName() string
	IsDiscoveryAsLocalhost() bool
	GetCAInstance() string
	GetOrgName() string
	GetMspID() string
	GetKeyStorePath() string
	GetAdminEnrollment() AdminEnrollment
	TimeoutOrDefault(timeoutType TimeoutType) time.Duration
	IsMetricsEnabled() bool
	GetMetricsPrefix() string
	GetLogLevel() string
}
