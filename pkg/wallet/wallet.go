/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"io/ioutil"
	"os"
	"sort"
	"sync"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/securekey/arcontents-gateway/util/errors"
)

var logger = logging.NewLogger("arcgateway")

// Store is the credential store. Credentials are kept in a fabric-sdk-go
// file system wallet, one <label>.id file per identity.
type Store struct {
	mutex  sync.RWMutex
	path   string
	wallet *gateway.Wallet
}

// Open opens the wallet at the given path, creating the directory if needed
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New(errors.MissingRequiredParameterError, "wallet path is required")
	}

	w, err := gateway.NewFileSystemWallet(path)
	if err != nil {
		return nil, errors.Wrapf(errors.StorageUnavailable, err, "failed to open wallet at [%s]", path)
	}

	if err := checkWritable(path); err != nil {
		return nil, err
	}

	logger.Debugf("Opened wallet at [%s]", path)

	return &Store{path: path, wallet: w}, nil
}

// Path returns the wallet directory
func (s *Store) Path() string {
	return s.path
}

// List returns the labels of all stored identities in lexical order
func (s *Store) List() ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	labels, err := s.wallet.List()
	if err != nil {
		return nil, errors.Wrapf(errors.StorageUnavailable, err, "failed to list wallet [%s]", s.path)
	}
	if labels == nil {
		labels = []string{}
	}
	sort.Strings(labels)
	return labels, nil
}

// Each calls fn for every stored label until fn returns false.
// Each call starts a new enumeration.
func (s *Store) Each(fn func(label string) bool) error {
	labels, err := s.List()
	if err != nil {
		return err
	}
	for _, label := range labels {
		if !fn(label) {
			return nil
		}
	}
	return nil
}

// Has returns true if a credential is stored under the label
func (s *Store) Has(label string) bool {
	if label == "" {
		return false
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.wallet.Exists(label)
}

// Put stores the credential under the label, replacing any existing one
func (s *Store) Put(label string, credential *api.Credential) error {
	if label == "" {
		return errors.New(errors.MissingRequiredParameterError, "label is required")
	}
	if credential == nil {
		return errors.New(errors.MissingRequiredParameterError, "credential is required")
	}

	identity := gateway.NewX509Identity(credential.MSPID, string(credential.Certificate), string(credential.PrivateKey))

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := s.wallet.Put(label, identity); err != nil {
		return errors.Wrapf(errors.StorageUnavailable, err, "failed to store identity [%s]", label)
	}

	logger.Debugf("Stored identity [%s] for MSP [%s]", label, credential.MSPID)
	return nil
}

// Get returns the credential stored under the label
func (s *Store) Get(label string) (*api.Credential, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if label == "" || !s.wallet.Exists(label) {
		return nil, errors.Errorf(errors.IdentityNotFound, "identity [%s] not found in wallet", label)
	}

	identity, err := s.wallet.Get(label)
	if err != nil {
		return nil, errors.Wrapf(errors.StorageUnavailable, err, "failed to read identity [%s]", label)
	}

	x509Identity, ok := identity.(*gateway.X509Identity)
	if !ok {
		return nil, errors.Errorf(errors.GeneralError, "identity [%s] is not an X.509 identity", label)
	}

	return &api.Credential{
		Certificate: []byte(x509Identity.Certificate()),
		PrivateKey:  []byte(x509Identity.Key()),
		MSPID:       x509Identity.MspID,
	}, nil
}

func checkWritable(path string) error {
	f, err := ioutil.TempFile(path, ".writable-")
	if err != nil {
		return errors.Wrapf(errors.StorageUnavailable, err, "wallet path [%s] is not writable", path)
	}
	name := f.Name()
	f.Close()
	if err := os.Remove(name); err != nil {
		logger.Warnf("Failed to remove wallet write-check file [%s]: %s", name, err)
	}
	return nil
}
