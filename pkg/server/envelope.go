/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"encoding/json"
	"net/http"
)

const (
	resultSuccess = "success"
	resultFail    = "fail"
)

// Messages returned by the contract endpoints
const (
	MsgSubmitted     = "tx has submitted"
	MsgNotSubmitted  = "tx has NOT submitted"
	MsgReadFailed    = "ReadARContents has a error"
	MsgHistoryFailed = "GetARContentsHistory has a error"
)

// Envelope is the body of every gateway response. ID holds a label, the
// list of labels or the failed path; Message holds a status text or the
// payload returned by the contract. A field is omitted only when it is
// unset, so an empty string set by a route is still written.
type Envelope struct {
	Result      string      `json:"result"`
	ID          interface{} `json:"id,omitempty"`
	Affiliation interface{} `json:"affiliation,omitempty"`
	Message     interface{} `json:"message,omitempty"`
}

// Succeeded returns true for a success envelope
func (e *Envelope) Succeeded() bool {
	return e.Result == resultSuccess
}

func success() *Envelope {
	return &Envelope{Result: resultSuccess}
}

func fail() *Envelope {
	return &Envelope{Result: resultFail}
}

// writeEnvelope always answers 200; the outcome is in the body
func writeEnvelope(w http.ResponseWriter, env *Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		logger.Errorf("Failed to marshal response: %s", err)
		payload = []byte(`{"result":"fail"}`)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(payload); err != nil {
		logger.Warnf("Failed to write response: %s", err)
	}
}
