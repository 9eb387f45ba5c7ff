/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package api

import (
	"context"
)

// AdminLabel is the wallet label reserved for the CA admin (registrar) identity
const AdminLabel = "admin"

// UnlimitedEnrollments tells the CA that a registered identity may enroll any number of times
const UnlimitedEnrollments = -1

// Role of an identity
type Role string

const (
	// RoleUser is registered at the CA with type "client"
	RoleUser Role = "client"
	// RoleAdmin is the bootstrap admin of the CA
	RoleAdmin Role = "admin"
)

// Identity describes an enrolled identity
type Identity struct {
	Label       string
	Affiliation string
	Role        Role
}

// Credential holds the enrollment material of an identity
type Credential struct {
	// Certificate is the PEM encoded enrollment certificate
	Certificate []byte
	// PrivateKey is the PEM encoded private key
	PrivateKey []byte
	// MSPID of the organization that issued the identity
	MSPID string
}

// RegistrationRequest is sent to the CA to register a new identity
type RegistrationRequest struct {
	Name           string
	Type           string
	Affiliation    string
	MaxEnrollments int
}

// CAClient is the certificate authority used to register and enroll identities
type CAClient interface {
	// Register registers the identity with registrar as the registering identity
	// and returns its one-time enrollment secret
	Register(ctx context.Context, registrar *Credential, request *RegistrationRequest) (string, error)
	// Enroll exchanges the enrollment id and secret for a credential
	Enroll(ctx context.Context, enrollmentID, secret string) (*Credential, error)
}
