package normalize

import "fmt"

// IssueKind classifies a non-fatal event during normalization.
type IssueKind string

// Issue kinds
const (
	IssueUnresolvedTerm     IssueKind = "unresolved_term"
	IssueSubstituted        IssueKind = "substituted"
	IssueOracleUnavailable  IssueKind = "oracle_unavailable"
	IssueMalformedDateRange IssueKind = "malformed_date_range"
	IssueUnparsableBudget   IssueKind = "unparsable_budget"
	IssueClamped            IssueKind = "clamped"
	IssueLocationSwitched   IssueKind = "location_switched"
	IssueEnvSwitched        IssueKind = "environment_switched"
	IssueEnvFallback        IssueKind = "environment_fallback"
)

// Issue is reported alongside a successfully normalized request.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Field  string    `json:"field"`
	Value  string    `json:"value,omitempty"`
	Detail string    `json:"detail,omitempty"`
}

func (i Issue) String() string {
	if i.Detail == "" {
		return fmt.Sprintf("%s %s %q", i.Kind, i.Field, i.Value)
	}
	return fmt.Sprintf("%s %s %q: %s", i.Kind, i.Field, i.Value, i.Detail)
}

// ErrorKind classifies a request the normalizer cannot turn into a query.
type ErrorKind string

// Request error kinds
const (
	KindContradictory ErrorKind = "contradictory"
	KindIncomplete    ErrorKind = "incomplete"
)

// RequestError is returned instead of a request so the caller can re-prompt.
type RequestError struct {
	Kind    ErrorKind `json:"kind"`
	Field   string    `json:"field"`
	Message string    `json:"message"`
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s request (%s): %s", e.Kind, e.Field, e.Message)
}

func contradictory(field, format string, args ...any) *RequestError {
	return &RequestError{Kind: KindContradictory, Field: field, Message: fmt.Sprintf(format, args...)}
}

func incomplete(field, format string, args ...any) *RequestError {
	return &RequestError{Kind: KindIncomplete, Field: field, Message: fmt.Sprintf(format, args...)}
}
