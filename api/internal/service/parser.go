package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"mashub/api/internal/domain"
	"mashub/pkg/utils"
	"strings"

	"github.com/go-playground/validator/v10"
)

var envelopeValidator = validator.New()

// ParseError is returned for envelopes rejected before anything is stored.
type ParseError struct {
	Kind   error // domain.ErrInvalidPayload or domain.ErrMissingEventType
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Kind
}

func invalidPayload(format string, args ...any) *ParseError {
	return &ParseError{Kind: domain.ErrInvalidPayload, Reason: fmt.Sprintf(format, args...)}
}

// ParseEnvelope decodes a raw webhook body. The body must be a JSON object
// with a non-empty event_type; data, when present and not null, must be a
// JSON object.
func ParseEnvelope(raw []byte) (*domain.Envelope, error) {
	if !utils.IsObject(raw) {
		return nil, invalidPayload("body is not a json object")
	}

	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, invalidPayload("%v", err)
	}

	env.EventType = strings.TrimSpace(env.EventType)
	if err := envelopeValidator.Struct(&env); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, &ParseError{Kind: domain.ErrMissingEventType, Reason: "event_type is required"}
		}
		return nil, invalidPayload("%v", err)
	}

	if !utils.IsNull(env.Data) && !utils.IsObject(env.Data) {
		return nil, invalidPayload("data must be a json object")
	}

	return &env, nil
}
