package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	grocerySchema = mustCompileSchema("schemas/grocery.json")
	storeSchema   = mustCompileSchema("schemas/store.json")
)

var (
	errInvalidBody  = errors.New("invalid json body")
	errBodyTooLarge = errors.New("request body too large")
)

// payloadError carries the schema violations of a request body.
type payloadError struct {
	details []string
}

func (e *payloadError) Error() string {
	return fmt.Sprintf("payload validation failed: %s", strings.Join(e.details, "; "))
}

func mustCompileSchema(name string) *santhosh.Schema {
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("read schema %s: %v", name, err))
	}
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	if err := compiler.AddResource(name, bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return schema
}

// decodePayload reads exactly one JSON value from the request body, checks it
// against schema and unmarshals it into dst.
func decodePayload(w http.ResponseWriter, r *http.Request, schema *santhosh.Schema, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	decoder := json.NewDecoder(r.Body)

	var raw json.RawMessage
	if err := decoder.Decode(&raw); err != nil {
		return bodyReadError(err)
	}
	if err := ensureEOF(decoder); err != nil {
		return bodyReadError(err)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return errInvalidBody
	}
	if err := schema.Validate(doc); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return &payloadError{details: collectValidationErrors(ve)}
		}
		return &payloadError{details: []string{err.Error()}}
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return errInvalidBody
	}
	return nil
}

func bodyReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errBodyTooLarge
	}
	return errInvalidBody
}

func collectValidationErrors(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		loc := ve.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", loc, ve.Message))
	}
	return msgs
}

func ensureEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	if err := decoder.Decode(&extra); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	return errors.New("extra json tokens")
}
