/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package arcontents

import (
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const recordSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "arcontents": {
      "type": "object",
      "properties": {
        "docType": {"type": "string"},
        "pid": {"type": "string"},
        "owner": {"type": "string"},
        "price": {"type": "integer"}
      },
      "required": ["pid"]
    }
  },
  "$ref": "#/definitions/arcontents"
}`

const historySchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "definitions": {
    "arcontents": {
      "type": "object",
      "properties": {
        "docType": {"type": "string"},
        "pid": {"type": "string"},
        "owner": {"type": "string"},
        "price": {"type": "integer"}
      }
    }
  },
  "type": ["array", "null"],
  "items": {
    "type": "object",
    "properties": {
      "record": {"oneOf": [{"$ref": "#/definitions/arcontents"}, {"type": "null"}]},
      "txId": {"type": "string"},
      "timestamp": {"type": "string"},
      "isDelete": {"type": "boolean"}
    },
    "required": ["txId"]
  }
}`

var (
	recordSchemaLoader  = gojsonschema.NewStringLoader(recordSchema)
	historySchemaLoader = gojsonschema.NewStringLoader(historySchema)
)

// validateJSON returns an error describing every schema violation of payload
func validateJSON(schema gojsonschema.JSONLoader, payload []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return err
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}
		return &schemaError{msg: strings.Join(descriptions, ", ")}
	}
	return nil
}

type schemaError struct {
	msg string
}

func (e *schemaError) Error() string {
	return "payload does not match schema: " + e.msg
}
