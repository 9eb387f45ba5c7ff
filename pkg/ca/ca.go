/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ca

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"

	mspclient "github.com/hyperledger/fabric-sdk-go/pkg/client/msp"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	mspctx "github.com/hyperledger/fabric-sdk-go/pkg/common/providers/msp"
	fabconfig "github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	mspimpl "github.com/hyperledger/fabric-sdk-go/pkg/msp"
	"github.com/hyperledger/fabric-sdk-go/pkg/util/pathvar"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/securekey/arcontents-gateway/util/errors"
	"github.com/spf13/viper"
)

var logger = logging.NewLogger("arcgateway")

// privateKeySuffix is appended to the hex encoded SKI by the SDK's file key store
const privateKeySuffix = "_sk"

// identityManager is the subset of the fabric-sdk-go MSP client used here
type identityManager interface {
	Register(request *mspclient.RegistrationRequest) (string, error)
	Enroll(enrollmentID string, opts ...mspclient.EnrollmentOption) error
	GetSigningIdentity(id string) (signingIdentity, error)
}

// userStore is where the SDK identity manager looks up enrolled identities
type userStore interface {
	Store(user *mspctx.UserData) error
}

// Client is an api.CAClient backed by the fabric-sdk-go MSP client.
// The SDK registers with the registrar named in the connection profile; the
// wallet admin is imported under that name before every registration so the
// SDK signs with it instead of enrolling a registrar of its own.
type Client struct {
	sdk          *fabsdk.FabricSDK
	mspClient    identityManager
	caName       string
	keyStorePath string
	mspID        string
	registrarID  string
	users        userStore
	mutex        sync.Mutex
}

// New creates a CA client for the CA instance and org in the config. The
// registrar of the CA in the connection profile must be the configured admin.
func New(config api.Config) (*Client, error) {
	profile := config.GetConnectionProfilePath()
	if profile == "" {
		return nil, errors.New(errors.MissingRequiredParameterError, "connection profile path is required")
	}
	if config.GetKeyStorePath() == "" {
		return nil, errors.New(errors.MissingRequiredParameterError, "key store path is required")
	}

	p, err := readProfile(profile, config.GetCAInstance())
	if err != nil {
		return nil, err
	}

	adminID := config.GetAdminEnrollment().EnrollID
	if p.registrarID != adminID {
		return nil, errors.Errorf(errors.ConfigError, "registrar [%s] of CA [%s] in connection profile does not match admin [%s]", p.registrarID, config.GetCAInstance(), adminID)
	}

	users, err := mspimpl.NewCertFileUserStore(p.credentialStorePath)
	if err != nil {
		return nil, errors.Wrapf(errors.ConfigError, err, "failed to open credential store [%s]", p.credentialStorePath)
	}

	sdk, err := fabsdk.New(fabconfig.FromFile(filepath.Clean(profile)))
	if err != nil {
		return nil, errors.Wrapf(errors.ConfigError, err, "failed to create SDK from connection profile [%s]", profile)
	}

	c, err := mspclient.New(sdk.Context(), mspclient.WithOrg(config.GetOrgName()), mspclient.WithCAInstance(config.GetCAInstance()))
	if err != nil {
		sdk.Close()
		return nil, errors.Wrapf(errors.ConfigError, err, "failed to create CA client for [%s]", config.GetCAInstance())
	}

	logger.Infof("Created CA client for [%s] of org [%s] with registrar [%s]", config.GetCAInstance(), config.GetOrgName(), p.registrarID)

	return &Client{
		sdk:          sdk,
		mspClient:    &sdkIdentityManager{Client: c},
		caName:       config.GetCAInstance(),
		keyStorePath: config.GetKeyStorePath(),
		mspID:        config.GetMspID(),
		registrarID:  p.registrarID,
		users:        users,
	}, nil
}

// Register registers the identity with registrar as the registering
// identity and returns its enrollment secret
func (c *Client) Register(ctx context.Context, registrar *api.Credential, request *api.RegistrationRequest) (string, error) {
	if request == nil || request.Name == "" {
		return "", errors.New(errors.MissingRequiredParameterError, "registration name is required")
	}
	if registrar == nil {
		return "", errors.New(errors.MissingRequiredParameterError, "registrar credential is required")
	}

	if err := c.importRegistrar(registrar); err != nil {
		return "", err
	}

	logger.Debugf("Registering [%s] with affiliation [%s] at CA [%s]", request.Name, request.Affiliation, c.caName)

	secret, err := c.mspClient.Register(&mspclient.RegistrationRequest{
		Name:           request.Name,
		Type:           request.Type,
		MaxEnrollments: request.MaxEnrollments,
		Affiliation:    request.Affiliation,
	})
	if err != nil {
		return "", errors.Wrapf(errors.CARegistrationFailed, err, "register [%s] failed", request.Name)
	}
	return secret, nil
}

// importRegistrar writes the registrar certificate to the SDK user store and
// its key to the SDK key store, where the SDK resolves the registrar from
func (c *Client) importRegistrar(registrar *api.Credential) error {
	ski, err := certificateSKI(registrar.Certificate)
	if err != nil {
		return errors.WithMessage(errors.CARegistrationFailed, err, "invalid registrar certificate")
	}

	mspID := registrar.MSPID
	if mspID == "" {
		mspID = c.mspID
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := writePrivateKey(c.keyStorePath, ski, registrar.PrivateKey); err != nil {
		return err
	}

	err = c.users.Store(&mspctx.UserData{
		ID:                    c.registrarID,
		MSPID:                 mspID,
		EnrollmentCertificate: registrar.Certificate,
	})
	if err != nil {
		return errors.Wrapf(errors.CARegistrationFailed, err, "failed to import registrar [%s]", c.registrarID)
	}
	return nil
}

// Enroll enrolls the identity and returns the issued certificate together with
// the private key the SDK generated for it
func (c *Client) Enroll(ctx context.Context, enrollmentID, secret string) (*api.Credential, error) {
	if err := c.mspClient.Enroll(enrollmentID, mspclient.WithSecret(secret)); err != nil {
		return nil, errors.Wrapf(errors.CAEnrollmentFailed, err, "enroll [%s] failed", enrollmentID)
	}

	si, err := c.mspClient.GetSigningIdentity(enrollmentID)
	if err != nil {
		return nil, errors.Wrapf(errors.CAEnrollmentFailed, err, "failed to load signing identity [%s]", enrollmentID)
	}

	key, err := readPrivateKey(c.keyStorePath, si.SKI())
	if err != nil {
		return nil, err
	}

	logger.Debugf("Enrolled [%s] for MSP [%s]", enrollmentID, si.MSPID())

	return &api.Credential{
		Certificate: si.Certificate(),
		PrivateKey:  key,
		MSPID:       si.MSPID(),
	}, nil
}

// Close releases the SDK
func (c *Client) Close() {
	if c.sdk != nil {
		c.sdk.Close()
	}
}

// profileCA holds the connection profile settings the CA client depends on
type profileCA struct {
	registrarID         string
	credentialStorePath string
}

// readProfile reads the registrar of the CA and the SDK credential store from
// the connection profile. CA names contain dots, so keys are split on "::".
func readProfile(path, caName string) (*profileCA, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("::"))
	v.SetConfigFile(filepath.Clean(path))
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(errors.ConfigError, err, "failed to read connection profile [%s]", path)
	}

	p := &profileCA{
		registrarID:         v.GetString("certificateAuthorities::" + caName + "::registrar::enrollId"),
		credentialStorePath: pathvar.Subst(v.GetString("client::credentialStore::path")),
	}
	if p.registrarID == "" {
		return nil, errors.Errorf(errors.ConfigError, "no registrar for CA [%s] in connection profile [%s]", caName, path)
	}
	if p.credentialStorePath == "" {
		return nil, errors.Errorf(errors.ConfigError, "no client credential store in connection profile [%s]", path)
	}
	return p, nil
}

// certificateSKI returns the SKI the SDK key store files the certificate's key under
func certificateSKI(certPEM []byte) ([]byte, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, errors.New(errors.GeneralError, "certificate is not PEM encoded")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}

	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.Errorf(errors.GeneralError, "unsupported public key type %T", cert.PublicKey)
	}

	hash := sha256.Sum256(elliptic.Marshal(pub.Curve, pub.X, pub.Y))
	return hash[:], nil
}

func writePrivateKey(keyStorePath string, ski, key []byte) error {
	if block, _ := pem.Decode(key); block == nil {
		return errors.New(errors.CARegistrationFailed, "registrar private key is not PEM encoded")
	}

	if err := os.MkdirAll(keyStorePath, 0700); err != nil {
		return errors.Wrapf(errors.CARegistrationFailed, err, "failed to create key store [%s]", keyStorePath)
	}

	keyPath := filepath.Join(keyStorePath, hex.EncodeToString(ski)+privateKeySuffix)
	if err := ioutil.WriteFile(keyPath, key, 0600); err != nil {
		return errors.Wrapf(errors.CARegistrationFailed, err, "failed to write private key [%s]", keyPath)
	}
	return nil
}

// readPrivateKey loads the PEM key the SDK key store saved under the SKI
func readPrivateKey(keyStorePath string, ski []byte) ([]byte, error) {
	if len(ski) == 0 {
		return nil, errors.New(errors.CAEnrollmentFailed, "signing identity has no key SKI")
	}

	keyPath := filepath.Join(keyStorePath, hex.EncodeToString(ski)+privateKeySuffix)
	raw, err := ioutil.ReadFile(filepath.Clean(keyPath))
	if err != nil {
		return nil, errors.Wrapf(errors.CAEnrollmentFailed, err, "failed to read private key [%s]", keyPath)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.Errorf(errors.CAEnrollmentFailed, "private key [%s] is not PEM encoded", keyPath)
	}

	return raw, nil
}
