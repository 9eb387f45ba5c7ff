/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package fabgateway

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	fabconfig "github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/securekey/arcontents-gateway/util/errors"
)

var logger = logging.NewLogger("arcgateway")

// discoveryAsLocalhostEnv makes the SDK map discovered peer addresses to localhost
const discoveryAsLocalhostEnv = "DISCOVERY_AS_LOCALHOST"

// Connector opens fabric-sdk-go gateway connections described by a connection profile
type Connector struct {
	profilePath   string
	commitTimeout time.Duration
}

// New returns a connector for the connection profile in the config
func New(config api.Config) (*Connector, error) {
	profile := config.GetConnectionProfilePath()
	if profile == "" {
		return nil, errors.New(errors.MissingRequiredParameterError, "connection profile path is required")
	}

	if err := os.Setenv(discoveryAsLocalhostEnv, strconv.FormatBool(config.IsDiscoveryAsLocalhost())); err != nil {
		return nil, errors.Wrapf(errors.ConfigError, err, "failed to set %s", discoveryAsLocalhostEnv)
	}

	return &Connector{
		profilePath:   filepath.Clean(profile),
		commitTimeout: config.TimeoutOrDefault(api.CommitTimeout),
	}, nil
}

// Connect opens a gateway connection acting as the given identity. The
// credential is loaded into an in-memory wallet owned by the connection.
func (c *Connector) Connect(ctx context.Context, label string, credential *api.Credential) (api.Connection, error) {
	if credential == nil {
		return nil, errors.Errorf(errors.MissingRequiredParameterError, "no credential for [%s]", label)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.ConnectionFailed, err, "connect abandoned")
	}

	w := gateway.NewInMemoryWallet()
	identity := gateway.NewX509Identity(credential.MSPID, string(credential.Certificate), string(credential.PrivateKey))
	if err := w.Put(label, identity); err != nil {
		return nil, errors.Wrapf(errors.ConnectionFailed, err, "failed to load identity [%s]", label)
	}

	gw, err := gateway.Connect(
		gateway.WithConfig(fabconfig.FromFile(c.profilePath)),
		gateway.WithIdentity(w, label),
		gateway.WithTimeout(c.commitTimeout),
	)
	if err != nil {
		return nil, errors.Wrapf(errors.ConnectionFailed, err, "failed to connect to gateway as [%s]", label)
	}

	logger.Debugf("Connected to gateway as [%s] using profile [%s]", label, c.profilePath)

	return &connection{gw: gw}, nil
}

type connection struct {
	gw *gateway.Gateway
}

func (c *connection) GetNetwork(name string) (api.Network, error) {
	n, err := c.gw.GetNetwork(name)
	if err != nil {
		return nil, err
	}
	return &network{network: n}, nil
}

func (c *connection) Close() {
	c.gw.Close()
}

type network struct {
	network *gateway.Network
}

func (n *network) GetContract(name string) (api.Contract, error) {
	contract := n.network.GetContract(name)
	if contract == nil {
		return nil, errors.Errorf(errors.ContractNotFound, "contract [%s] not found", name)
	}
	return contract, nil
}
