/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package errors

//ErrorCode error code
type ErrorCode int

const (
	// GeneralError generic error
	GeneralError ErrorCode = 0

	// MissingRequiredParameterError a required input was empty
	MissingRequiredParameterError ErrorCode = 1

	// ConfigError configuration could not be loaded or is invalid
	ConfigError ErrorCode = 2

	// PanicError a recovered panic
	PanicError ErrorCode = 3

	// StorageUnavailable the wallet directory cannot be created, read or written
	StorageUnavailable ErrorCode = 10

	// IdentityNotFound no credential is stored under the label
	IdentityNotFound ErrorCode = 11

	// RegistrarMissing the admin credential required to register users is absent
	RegistrarMissing ErrorCode = 12

	// CARegistrationFailed ...
	CARegistrationFailed ErrorCode = 20

	// CAEnrollmentFailed ...
	CAEnrollmentFailed ErrorCode = 21

	// ConnectionFailed the network could not be reached or discovery failed
	ConnectionFailed ErrorCode = 30

	// ChannelNotFound ...
	ChannelNotFound ErrorCode = 31

	// ContractNotFound ...
	ContractNotFound ErrorCode = 32

	// TransactionRejected the chaincode rejected a submitted transaction
	TransactionRejected ErrorCode = 40

	// OrderingFailed the transaction failed on its way through ordering or commit
	OrderingFailed ErrorCode = 41

	// QueryFailed an evaluated transaction failed or returned an unusable payload
	QueryFailed ErrorCode = 42
)

var codeNames = map[ErrorCode]string{
	GeneralError:                  "GeneralError",
	MissingRequiredParameterError: "MissingRequiredParameter",
	ConfigError:                   "ConfigError",
	PanicError:                    "PanicError",
	StorageUnavailable:            "StorageUnavailable",
	IdentityNotFound:              "IdentityNotFound",
	RegistrarMissing:              "RegistrarMissing",
	CARegistrationFailed:          "CARegistrationFailed",
	CAEnrollmentFailed:            "CAEnrollmentFailed",
	ConnectionFailed:              "ConnectionFailed",
	ChannelNotFound:               "ChannelNotFound",
	ContractNotFound:              "ContractNotFound",
	TransactionRejected:           "TransactionRejected",
	OrderingFailed:                "OrderingFailed",
	QueryFailed:                   "QueryFailed",
}

// String returns the name of the code
func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return "UnknownError"
}
