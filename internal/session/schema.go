package session

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDocument is returned when a state document does not match the
// storage-state schema.
var ErrInvalidDocument = errors.New("invalid session state document")

const stateSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["cookies", "origins"],
  "properties": {
    "key": {"type": "string"},
    "capturedAt": {"type": "string"},
    "cookies": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "value", "domain", "path"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "value": {"type": "string"},
          "domain": {"type": "string"},
          "path": {"type": "string"},
          "expires": {"type": "number"},
          "httpOnly": {"type": "boolean"},
          "secure": {"type": "boolean"},
          "sameSite": {"enum": ["Strict", "Lax", "None", ""]}
        }
      }
    },
    "origins": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["origin"],
        "properties": {
          "origin": {"type": "string", "minLength": 1},
          "localStorage": {"$ref": "#/definitions/entries"},
          "sessionStorage": {"$ref": "#/definitions/entries"}
        }
      }
    }
  },
  "definitions": {
    "entries": {
      "type": ["array", "null"],
      "items": {
        "type": "object",
        "required": ["name", "value"],
        "properties": {
          "name": {"type": "string"},
          "value": {"type": "string"}
        }
      }
    }
  }
}`

var (
	compiledSchema *gojsonschema.Schema
	schemaErr      error
	schemaOnce     sync.Once
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(stateSchema))
	})
	return compiledSchema, schemaErr
}

// ValidateDocument checks raw JSON against the storage-state schema and
// decodes it.
func ValidateDocument(data []byte) (*State, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile state schema")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidDocument, err.Error())
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, errors.Wrap(ErrInvalidDocument, strings.Join(msgs, "; "))
	}
	return Unmarshal(data)
}
