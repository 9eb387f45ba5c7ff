/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ca

import (
	mspclient "github.com/hyperledger/fabric-sdk-go/pkg/client/msp"
	mspctx "github.com/hyperledger/fabric-sdk-go/pkg/common/providers/msp"
)

// signingIdentity is the part of an SDK signing identity the CA client needs
type signingIdentity interface {
	Certificate() []byte
	SKI() []byte
	MSPID() string
}

type sdkIdentityManager struct {
	*mspclient.Client
}

// GetSigningIdentity adapts the SDK signing identity
func (m *sdkIdentityManager) GetSigningIdentity(id string) (signingIdentity, error) {
	si, err := m.Client.GetSigningIdentity(id)
	if err != nil {
		return nil, err
	}
	return &sdkSigningIdentity{si: si}, nil
}

type sdkSigningIdentity struct {
	si mspctx.SigningIdentity
}

func (s *sdkSigningIdentity) Certificate() []byte {
	return s.si.EnrollmentCertificate()
}

func (s *sdkSigningIdentity) SKI() []byte {
	if s.si.PrivateKey() == nil {
		return nil
	}
	return s.si.PrivateKey().SKI()
}

func (s *sdkSigningIdentity) MSPID() string {
	return s.si.Identifier().MSPID
}
