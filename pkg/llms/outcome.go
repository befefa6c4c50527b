package llms

import (
	"encoding/json"
)

// Outcome is the result of a single call: either text or an ErrorDetail,
// never both.
type Outcome struct {
	text string
	err  *ErrorDetail
}

// Success returns a successful outcome.
func Success(text string) Outcome {
	return Outcome{text: text}
}

// Failure returns a failed outcome.
func Failure(detail *ErrorDetail) Outcome {
	if detail == nil {
		detail = &ErrorDetail{
			ErrorType:  ErrorTypeUnexpected,
			Suggestion: SuggestionUnexpected,
			Kind:       KindUnexpected,
		}
	}
	return Outcome{err: detail}
}

// OK returns true for a successful outcome.
func (o Outcome) OK() bool {
	return o.err == nil
}

// Text returns the text of a successful outcome.
func (o Outcome) Text() (string, bool) {
	if o.err != nil {
		return "", false
	}
	return o.text, true
}

// Err returns the ErrorDetail of a failed outcome, or nil.
func (o Outcome) Err() *ErrorDetail {
	return o.err
}

// String returns the text, or the error message.
func (o Outcome) String() string {
	if o.err != nil {
		return o.err.Error()
	}
	return o.text
}

type outcomeJSON struct {
	Text  *string      `json:"text,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// MarshalJSON implements json.Marshaler
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.err != nil {
		return json.Marshal(outcomeJSON{Error: o.err})
	}
	return json.Marshal(outcomeJSON{Text: &o.text})
}

// Resolve applies the return-error policy to the result of a call.
// Configuration faults are always returned as error.
// With returnError other faults become a failed Outcome,
// otherwise they are returned as *ErrorDetail.
func Resolve(text string, err error, returnError bool) (Outcome, error) {
	if err == nil {
		return Success(text), nil
	}
	if IsConfigurationError(err) {
		return Outcome{}, err
	}
	detail := Describe(err, "", "")
	if returnError {
		return Failure(detail), nil
	}
	return Outcome{}, detail
}
