/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package server

import (
	"encoding/json"
	"io"
	"io/ioutil"
	"mime"
	"net/http"
	"strconv"

	"github.com/pkg/errors"
)

// maxBodySize bounds the request bodies read by the gateway
const maxBodySize = 1 << 20

// params are the named inputs of a request
type params map[string]string

func (p params) get(name string) string {
	return p[name]
}

// parseParams reads the query string and, for requests with a body, the
// url-encoded form or the JSON object it carries
func parseParams(r *http.Request) (params, error) {
	p := make(params)
	for name, values := range r.URL.Query() {
		if len(values) > 0 {
			p[name] = values[0]
		}
	}

	if r.Body == nil || r.Method == http.MethodGet {
		return p, nil
	}

	contentType := r.Header.Get("Content-Type")
	mediaType := ""
	if contentType != "" {
		var err error
		mediaType, _, err = mime.ParseMediaType(contentType)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid content type [%s]", contentType)
		}
	}

	switch mediaType {
	case "application/json":
		return parseJSON(r.Body, p)
	default:
		r.Body = http.MaxBytesReader(nil, r.Body, maxBodySize)
		if err := r.ParseForm(); err != nil {
			return nil, errors.Wrap(err, "failed to parse form")
		}
		for name, values := range r.PostForm {
			if len(values) > 0 {
				p[name] = values[0]
			}
		}
		return p, nil
	}
}

func parseJSON(body io.Reader, p params) (params, error) {
	raw, err := ioutil.ReadAll(io.LimitReader(body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read body")
	}
	if len(raw) == 0 {
		return p, nil
	}

	fields := make(map[string]interface{})
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(err, "body is not a JSON object")
	}

	for name, value := range fields {
		switch v := value.(type) {
		case nil:
		case string:
			p[name] = v
		case float64:
			p[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			p[name] = strconv.FormatBool(v)
		default:
			return nil, errors.Errorf("field [%s] must be a scalar, got %T", name, v)
		}
	}
	return p, nil
}
