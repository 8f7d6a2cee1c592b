// Package errors provides the structured fatal error taxonomy for a document pass.
// Suppressed candidates are never errors; they are recorded in decision rationales.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Kind classifies a fatal error.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindInputContract Kind = "input_contract"
	KindDeterminism   Kind = "determinism_violation"
)

// Code is a machine-readable error code.
type Code string

const (
	// Configuration errors
	CodeUnknownTheme       Code = "UNKNOWN_THEME"
	CodeMissingSetting     Code = "MISSING_SETTING"
	CodeInvalidSetting     Code = "INVALID_SETTING"
	CodeRegistryEntry      Code = "MALFORMED_REGISTRY_ENTRY"
	CodeRegistryDuplicate  Code = "DUPLICATE_REGISTRY_ENTRY"
	CodeRegistryReference  Code = "UNKNOWN_REGISTRY_REFERENCE"
	CodeConfigUnreadable   Code = "CONFIG_UNREADABLE"
	CodeRegistryUnreadable Code = "REGISTRY_UNREADABLE"

	// Input contract errors
	CodeUnknownCharacter Code = "UNKNOWN_CHARACTER"
	CodeSegmentOrder     Code = "SEGMENT_ORDER"
	CodeSegmentField     Code = "SEGMENT_FIELD_OUT_OF_RANGE"
	CodeEmptyDocument    Code = "EMPTY_DOCUMENT"
	CodeDuplicateProfile Code = "DUPLICATE_PROFILE"
	CodeUnknownArchetype Code = "UNKNOWN_ARCHETYPE"

	// Determinism errors
	CodeDigestMismatch Code = "DIGEST_MISMATCH"
)

// #region error
// Error is a fatal, structured error that aborts a document pass.
type Error struct {
	Kind       Kind
	Code       Code
	DocumentID string
	SegmentID  int
	HasSegment bool
	Rule       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]", e.Kind, e.Code)
	if e.DocumentID != "" {
		fmt.Fprintf(&b, " document=%s", e.DocumentID)
	}
	if e.HasSegment {
		fmt.Fprintf(&b, " segment=%d", e.SegmentID)
	}
	if e.Rule != "" {
		fmt.Fprintf(&b, " rule=%s", e.Rule)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// #endregion error

// #region constructors

// Configuration creates a configuration error for the named rule.
func Configuration(code Code, rule, format string, args ...any) *Error {
	return &Error{
		Kind:    KindConfiguration,
		Code:    code,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	}
}

// InputContract creates an input contract error pinned to a segment.
func InputContract(code Code, segmentID int, format string, args ...any) *Error {
	return &Error{
		Kind:       KindInputContract,
		Code:       code,
		SegmentID:  segmentID,
		HasSegment: true,
		Message:    fmt.Sprintf(format, args...),
	}
}

// Determinism creates a determinism violation error.
func Determinism(documentID, format string, args ...any) *Error {
	return &Error{
		Kind:       KindDeterminism,
		Code:       CodeDigestMismatch,
		DocumentID: documentID,
		Message:    fmt.Sprintf(format, args...),
	}
}

// AtSegment returns a copy of e pinned to the given segment.
func (e *Error) AtSegment(segmentID int) *Error {
	c := *e
	c.SegmentID = segmentID
	c.HasSegment = true
	return &c
}

// WithDocument attaches a document id to err if it is a structured error.
// Other errors are returned unchanged.
func WithDocument(err error, documentID string) error {
	var e *Error
	if !stderrors.As(err, &e) {
		return err
	}
	c := *e
	c.DocumentID = documentID
	return &c
}

// #endregion constructors

// #region inspection

// KindOf returns the kind of a structured error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// CodeOf returns the code of a structured error, or "" for anything else.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}

// #endregion inspection
