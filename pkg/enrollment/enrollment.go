/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package enrollment

import (
	"context"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/securekey/arcontents-gateway/api"
	"github.com/securekey/arcontents-gateway/pkg/wallet"
	"github.com/securekey/arcontents-gateway/util/deadline"
	"github.com/securekey/arcontents-gateway/util/errors"
	"golang.org/x/sync/singleflight"
)

var logger = logging.NewLogger("arcgateway")

// Client registers and enrolls identities at the CA and keeps
// the resulting credentials in the wallet
type Client struct {
	ca     api.CAClient
	store  *wallet.Store
	config api.Config
	group  singleflight.Group
}

// New returns a new enrollment client
func New(ca api.CAClient, store *wallet.Store, config api.Config) *Client {
	return &Client{
		ca:     ca,
		store:  store,
		config: config,
	}
}

// singleflight keys, kept apart so a user labelled "admin" is never
// collapsed into the admin enrollment
const (
	adminKeyPrefix = "admin:"
	userKeyPrefix  = "user:"
)

// EnrollAdmin enrolls the CA bootstrap admin and stores it under the admin label.
// It is a no-op if the admin is already in the wallet.
func (c *Client) EnrollAdmin(ctx context.Context) error {
	return c.do(ctx, adminKeyPrefix+api.AdminLabel, c.enrollAdmin)
}

func (c *Client) enrollAdmin(ctx context.Context) error {
	if c.store.Has(api.AdminLabel) {
		logger.Infof("An identity for the admin user [%s] already exists in the wallet", api.AdminLabel)
		return nil
	}

	admin := c.config.GetAdminEnrollment()

	cred, err := c.enroll(ctx, admin.EnrollID, admin.EnrollSecret)
	if err != nil {
		return err
	}

	if err := c.store.Put(api.AdminLabel, cred); err != nil {
		return err
	}

	logger.Infof("Successfully enrolled admin user [%s] and imported it into the wallet", api.AdminLabel)
	return nil
}

// RegisterAndEnrollUser registers the user at the CA with the wallet admin
// as registrar, enrolls it and stores the credential under label. It is a
// no-op if the label is already in the wallet.
func (c *Client) RegisterAndEnrollUser(ctx context.Context, label, affiliation string) error {
	if label == "" {
		return errors.New(errors.MissingRequiredParameterError, "user name is required")
	}

	return c.do(ctx, userKeyPrefix+label, func(sharedCtx context.Context) error {
		return c.registerAndEnrollUser(sharedCtx, label, affiliation)
	})
}

// do runs fn once for all concurrent callers with the same key. fn gets a
// context of its own, so a caller that goes away does not fail the others;
// every CA call made by fn is bounded by the CA timeout.
func (c *Client) do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	results := c.group.DoChan(key, func() (interface{}, error) {
		return nil, fn(context.Background())
	})

	select {
	case r := <-results:
		if r.Shared {
			logger.Debugf("Enrollment [%s] was shared with a concurrent request", key)
		}
		return r.Err
	case <-ctx.Done():
		logger.Warnf("Request for enrollment [%s] went away before it completed", key)
		return errors.Wrapf(errors.GeneralError, ctx.Err(), "enrollment [%s] abandoned", key)
	}
}

func (c *Client) registerAndEnrollUser(ctx context.Context, label, affiliation string) error {
	registrar, err := c.store.Get(api.AdminLabel)
	if err != nil {
		if errors.HasCode(err, errors.IdentityNotFound) {
			return errors.Errorf(errors.RegistrarMissing, "an identity for the admin user [%s] does not exist in the wallet, enroll the admin before retrying", api.AdminLabel)
		}
		return err
	}

	if c.store.Has(label) {
		logger.Infof("An identity for the user [%s] already exists in the wallet", label)
		return nil
	}

	request := &api.RegistrationRequest{
		Name:           label,
		Type:           string(api.RoleUser),
		Affiliation:    affiliation,
		MaxEnrollments: api.UnlimitedEnrollments,
	}

	var secret string
	err = deadline.Run(ctx, c.config.TimeoutOrDefault(api.CATimeout), func() error {
		var e error
		secret, e = c.ca.Register(ctx, registrar, request)
		return e
	})
	if err != nil {
		return errors.WithMessage(errors.CARegistrationFailed, err, "failed to register user ["+label+"]")
	}

	cred, err := c.enroll(ctx, label, secret)
	if err != nil {
		return err
	}

	if err := c.store.Put(label, cred); err != nil {
		return err
	}

	logger.Infof("Successfully registered and enrolled user [%s] and imported it into the wallet", label)
	return nil
}

func (c *Client) enroll(ctx context.Context, enrollmentID, secret string) (*api.Credential, error) {
	var cred *api.Credential
	err := deadline.Run(ctx, c.config.TimeoutOrDefault(api.CATimeout), func() error {
		var e error
		cred, e = c.ca.Enroll(ctx, enrollmentID, secret)
		return e
	})
	if err != nil {
		return nil, errors.WithMessage(errors.CAEnrollmentFailed, err, "failed to enroll ["+enrollmentID+"]")
	}
	if cred == nil {
		return nil, errors.Errorf(errors.CAEnrollmentFailed, "CA returned no credential for [%s]", enrollmentID)
	}
	if cred.MSPID == "" {
		cred.MSPID = c.config.GetMspID()
	}
	return cred, nil
}
