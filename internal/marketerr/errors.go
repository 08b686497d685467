// Package marketerr is the shared error taxonomy for configuration,
// request-time and transport failures across the module.
package marketerr

import (
	"errors"
	"fmt"
)

// Kind discriminates the flat taxonomy of sentinel error kinds.
type Kind string

const (
	KindInvalidExchange      Kind = "InvalidExchange"
	KindInvalidConfigType    Kind = "InvalidConfigType"
	KindMissingField         Kind = "MissingField"
	KindInvalidFieldFormat   Kind = "InvalidFieldFormat"
	KindInvalidFieldValue    Kind = "InvalidFieldValue"
	KindBadParse             Kind = "BadParse"
	KindPairUnsupported      Kind = "PairUnsupported"
	KindMissingPrice         Kind = "MissingPrice"
	KindInsufficientOrderSize Kind = "InsufficientOrderSize"
	KindBadCredentials       Kind = "BadCredentials"
	KindInvalidArguments     Kind = "InvalidArguments"
	KindExchangeSpecific     Kind = "ExchangeSpecificError"
	KindHub                  Kind = "Hub"
	KindJSON                 Kind = "Json"
	KindHTTP                 Kind = "Http"
)

// Error is the structured error carried through the module; Kind is
// stable and comparable via errors.Is, Detail is human-readable context.
type Error struct {
	Kind   Kind
	Detail string
	err    error
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.err }

// Is reports whether target has the same Kind, so callers can write
// errors.Is(err, marketerr.New(marketerr.KindMissingPrice, "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	return false
}

func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Detail: detail, err: err}
}

func MissingField(name string) *Error {
	return New(KindMissingField, name)
}

func InvalidConfigType(expected, got string) *Error {
	return New(KindInvalidConfigType, fmt.Sprintf("expected %s, got %s", expected, got))
}

func PairUnsupported(pair string) *Error {
	return New(KindPairUnsupported, pair)
}

func MissingPrice() *Error {
	return New(KindMissingPrice, "limit orders require a price")
}
