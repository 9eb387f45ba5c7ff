/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"context"
	"net/http"

	"github.com/securekey/arcontents-gateway/api"
)

func (s *Server) routes() []route {
	return []route{
		{path: "/user", method: http.MethodPost, run: s.registerUser, failure: registerUserFailed},
		{path: "/admin", method: http.MethodPost, run: s.enrollAdmin, failure: enrollAdminFailed},
		{path: "/user/list", method: http.MethodGet, run: s.listUsers, failure: listUsersFailed},
		{path: "/arcontents", method: http.MethodPost, run: s.createARContents, failure: notSubmitted},
		{path: "/arcontents", method: http.MethodGet, run: s.readARContents, failure: readFailed},
		{path: "/arcontents/tx", method: http.MethodPost, run: s.transferARContents, failure: notSubmitted},
		{path: "/arcontents/history", method: http.MethodGet, run: s.arcontentsHistory, failure: historyFailed},
	}
}

func (s *Server) registerUser(ctx context.Context, p params) (*Envelope, error) {
	name, department := p.get("name"), p.get("department")
	logger.Infof("/user start -- %s %s", name, department)

	if err := s.deps.Enrollment.RegisterAndEnrollUser(ctx, name, department); err != nil {
		return nil, err
	}

	env := success()
	env.ID = name
	env.Affiliation = department
	return env, nil
}

func registerUserFailed(p params) *Envelope {
	env := fail()
	env.ID = p.get("name")
	env.Affiliation = p.get("department")
	return env
}

func (s *Server) enrollAdmin(ctx context.Context, p params) (*Envelope, error) {
	logger.Infof("/admin start --")

	if err := s.deps.Enrollment.EnrollAdmin(ctx); err != nil {
		return nil, err
	}

	env := success()
	env.ID = api.AdminLabel
	return env, nil
}

func enrollAdminFailed(params) *Envelope {
	env := fail()
	env.ID = api.AdminLabel
	return env
}

func (s *Server) listUsers(ctx context.Context, p params) (*Envelope, error) {
	logger.Infof("/user/list start --")

	labels, err := s.deps.Identities.List()
	if err != nil {
		return nil, err
	}

	env := success()
	env.ID = labels
	return env, nil
}

func listUsersFailed(params) *Envelope {
	env := fail()
	env.ID = "/user/list"
	return env
}

func (s *Server) createARContents(ctx context.Context, p params) (*Envelope, error) {
	cert, pid, owner, price, status := p.get("cert"), p.get("pid"), p.get("owner"), p.get("price"), p.get("status")
	logger.Infof("/arcontents post start -- %s %s %s %s", pid, owner, price, status)

	if err := s.deps.Ledger.Create(ctx, cert, pid, owner, price, status); err != nil {
		return nil, err
	}
	return submitted(), nil
}

func (s *Server) transferARContents(ctx context.Context, p params) (*Envelope, error) {
	cert, pid, owner := p.get("cert"), p.get("pid"), p.get("owner")
	logger.Infof("/arcontents/tx post start -- %s %s", pid, owner)

	if err := s.deps.Ledger.Transfer(ctx, cert, pid, owner); err != nil {
		return nil, err
	}
	return submitted(), nil
}

func submitted() *Envelope {
	env := success()
	env.Message = MsgSubmitted
	return env
}

func notSubmitted(params) *Envelope {
	env := fail()
	env.Message = MsgNotSubmitted
	return env
}

func (s *Server) readARContents(ctx context.Context, p params) (*Envelope, error) {
	cert, pid := p.get("cert"), p.get("pid")
	logger.Infof("/arcontents get start -- %s", pid)

	payload, err := s.deps.Ledger.Read(ctx, cert, pid)
	if err != nil {
		return nil, err
	}

	env := success()
	env.Message = payload
	return env, nil
}

func readFailed(params) *Envelope {
	env := fail()
	env.Message = MsgReadFailed
	return env
}

func (s *Server) arcontentsHistory(ctx context.Context, p params) (*Envelope, error) {
	cert, pid := p.get("cert"), p.get("pid")
	logger.Infof("/arcontents/history get start -- %s", pid)

	payload, err := s.deps.Ledger.History(ctx, cert, pid)
	if err != nil {
		return nil, err
	}

	env := success()
	env.Message = payload
	return env, nil
}

func historyFailed(params) *Envelope {
	env := fail()
	env.Message = MsgHistoryFailed
	return env
}
