/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package healthcheck

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/securekey/arcontents-gateway/pkg/wallet"
)

var logger = logging.NewLogger("arcgateway")

const (
	// WalletCheck verifies that the wallet can be listed
	WalletCheck = "wallet"
	// RegistrarCheck verifies that the admin identity is enrolled
	RegistrarCheck = "registrar"
	// ConnectionProfileCheck verifies that the connection profile is readable
	ConnectionProfileCheck = "connectionProfile"
)

// statusOK is reported by a check that passed
const statusOK = "ok"

// SmokeTestResult is a structure representing the results of a SmokeTest
type SmokeTestResult struct {
	Message string            `json:"message,omitempty"`
	Status  int               `json:"status,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// Healthy returns true if every check passed
func (r *SmokeTestResult) Healthy() bool {
	return r.Status == http.StatusOK
}

// Checker runs the smoke test of the gateway
type Checker struct {
	store  *wallet.Store
	config api.Config
}

// New returns a new Checker
func New(store *wallet.Store, config api.Config) *Checker {
	return &Checker{store: store, config: config}
}

// SmokeTest runs every check. A missing admin identity is reported
// but does not make the gateway unhealthy.
func (c *Checker) SmokeTest() *SmokeTestResult {
	result := &SmokeTestResult{
		Status: http.StatusOK,
		Checks: make(map[string]string),
	}

	labels, err := c.store.List()
	if err != nil {
		logger.Warnf("Wallet smoke test failed: %s", err)
		result.fail(WalletCheck, err)
	} else {
		result.Checks[WalletCheck] = fmt.Sprintf("%d identities", len(labels))
	}

	if c.store.Has(api.AdminLabel) {
		result.Checks[RegistrarCheck] = statusOK
	} else {
		result.Checks[RegistrarCheck] = "admin not enrolled"
	}

	if profile := c.config.GetConnectionProfilePath(); profile == "" {
		result.fail(ConnectionProfileCheck, fmt.Errorf("connection profile is not configured"))
	} else if _, err := os.Stat(profile); err != nil {
		logger.Warnf("Connection profile smoke test failed: %s", err)
		result.fail(ConnectionProfileCheck, err)
	} else {
		result.Checks[ConnectionProfileCheck] = statusOK
	}

	if result.Healthy() {
		result.Message = "Healthcheck passed"
	} else {
		result.Message = "Healthcheck failed"
	}
	return result
}

// ServeHTTP writes the smoke test result with its status
func (c *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result := c.SmokeTest()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.Status)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.Errorf("Failed to write healthcheck result: %s", err)
	}
}

// UnmarshalSmokeTestResult will JSON Unmarshal an object of type []byte
func UnmarshalSmokeTestResult(objBytes []byte) (*SmokeTestResult, error) {
	obj := &SmokeTestResult{}
	err := json.Unmarshal(objBytes, obj)
	return obj, err
}

func (r *SmokeTestResult) fail(check string, err error) {
	r.Status = http.StatusServiceUnavailable
	r.Checks[check] = err.Error()
}
