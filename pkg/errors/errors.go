// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hostel Desk Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error. Codes follow the
// "area.op.reason" convention; the reason suffix drives classification.
type Code string

const (
	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeSecretResolveFailure  Code = "secret.resolve.failure"
	CodeSecretStoreFailure    Code = "secret.store.failure"
	CodeSecretNotFound        Code = "secret.get.not_found"
	CodeSecretURIInvalidInput Code = "secret.uri.invalid_input"

	CodeStoreDatabaseFailure    Code = "store.database.failure"
	CodeStoreBackendUnsupported Code = "store.backend.unsupported"
	CodeStoreInvalidInput       Code = "store.invalid_input"

	CodeEmbedRequestInvalid   Code = "embed.request.invalid"
	CodeEmbedUpstreamFailure  Code = "embed.upstream.failure"
	CodeEmbedResponseInvalid  Code = "embed.response.invalid"
	CodeEmbedBackendUnsupport Code = "embed.backend.unsupported"

	CodeProviderRequestInvalid  Code = "provider.request.invalid"
	CodeProviderResponseInvalid Code = "provider.response.invalid"
	CodeProviderUpstreamFailure Code = "provider.upstream.failure"
	CodeProviderNotFound        Code = "provider.registry.not_found"
	CodeProviderAllUnavailable  Code = "provider.routing.all_unavailable"
	CodeProviderNoDefault       Code = "provider.routing.no_default"
	CodeProviderInvalidModelRef Code = "provider.routing.invalid_model_ref"

	CodeMemoryWriteInvalidInput Code = "memory.write.invalid_input"
	CodeMemoryWriteFailure      Code = "memory.write.failure"
	CodeMemoryRecallUnavailable Code = "memory.recall.unavailable"
	CodeMemoryTurnInvalidInput  Code = "memory.turn.invalid_input"

	CodeKnowledgeLoadFailure       Code = "knowledge.load.failure"
	CodeKnowledgeParseInvalid      Code = "knowledge.parse.invalid_format"
	CodeKnowledgeIngestFailure     Code = "knowledge.ingest.failure"
	CodeRetrievalSearchUnavailable Code = "retrieval.search.unavailable"

	CodeQueryGenerateFailure    Code = "query.generate.failure"
	CodeQuerySafetyViolation    Code = "query.safety.violation"
	CodeQueryExecuteFailure     Code = "query.execute.failure"
	CodeQueryExecuteTimeout     Code = "query.execute.timeout"
	CodeQuerySchemaLoadFailure  Code = "query.schema.load.failure"
	CodeDataBackendUnsupported  Code = "data.backend.unsupported"
	CodeDataConnectFailure      Code = "data.connect.failure"
	CodeDataWriteForbidden      Code = "data.write.forbidden"
	CodeDataQueryFailure        Code = "data.query.failure"

	CodeRouterEnvelopeInvalid Code = "router.envelope.invalid"
	CodeRouterInternalFailure Code = "router.internal.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLIRequestFailure Code = "cli.request.failure"
	CodeCLISetupFailure   Code = "cli.setup.failure"
	CodeCLIInputInvalid   Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldSessionID(value string) Attr {
	return Field("session_id", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldCollection(value string) Attr {
	return Field("collection", value)
}

func FieldStage(value string) Attr {
	return Field("stage", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain, keeping its code.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsForbidden(err error) bool {
	r := reason(CodeOf(err))
	return r == "forbidden" || r == "violation"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable" || HasCode(err, CodeProviderAllUnavailable)
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsForbidden(err):
		return http.StatusForbidden
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case IsUnavailable(err):
		return http.StatusServiceUnavailable
	case IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Join combines errors; nil when every input is nil.
func Join(errs ...error) error {
	joined := stderrors.Join(errs...)
	if joined == nil {
		return nil
	}
	return oops.Code(CodeServerInternalFailure).Wrap(joined)
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
