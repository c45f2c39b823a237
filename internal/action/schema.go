package action

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"github.com/tansive/sessionactions/internal/common/apperrors"
)

// RequestSchema is a compiled JSON Schema for an action's parameters.
type RequestSchema struct {
	source   []byte
	compiled *jsonschema.Schema
}

// CompileSchema compiles an inline JSON Schema document.
func CompileSchema(schema string) (*RequestSchema, apperrors.Error) {
	if !gjson.Valid(schema) {
		return nil, ErrInvalidSchema.Msg("schema is not valid JSON")
	}

	const url = "inline://schema"
	compiler := jsonschema.NewCompiler()
	compiler.LoadURL = func(ref string) (io.ReadCloser, error) {
		if ref == url {
			return io.NopCloser(strings.NewReader(schema)), nil
		}
		return nil, fmt.Errorf("unsupported schema ref: %s", ref)
	}
	if err := compiler.AddResource(url, strings.NewReader(schema)); err != nil {
		return nil, ErrInvalidSchema.MsgErr("failed to add schema resource", err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, ErrInvalidSchema.MsgErr("failed to compile schema", err)
	}
	return &RequestSchema{source: []byte(schema), compiled: compiled}, nil
}

// MustCompileSchema is CompileSchema for package-level schemas. It panics on error.
func MustCompileSchema(schema string) *RequestSchema {
	s, err := CompileSchema(schema)
	if err != nil {
		panic(err.ErrorAll())
	}
	return s
}

// Source returns the schema document.
func (s *RequestSchema) Source() []byte {
	return s.source
}

// Validate checks params against the schema. A failed "required" keyword maps to
// ErrMissingParam; every other failure maps to ErrInvalidParam.
func (s *RequestSchema) Validate(params *Params) apperrors.Error {
	dec := json.NewDecoder(bytes.NewReader(params.Raw()))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return ErrInvalidParams.MsgErr("request parameters are not valid JSON", err)
	}
	err := s.compiled.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return ErrInvalidParam.MsgErr("request validation failed", err)
	}
	leaf := deepestCause(ve)
	if strings.HasSuffix(leaf.KeywordLocation, "/required") {
		return ErrMissingParam.Msg(leaf.Message)
	}
	loc := strings.TrimPrefix(leaf.InstanceLocation, "/")
	if loc == "" {
		return ErrInvalidParam.Msg(leaf.Message)
	}
	return ErrInvalidParam.Msg(loc + ": " + leaf.Message)
}

func deepestCause(ve *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return ve
}
