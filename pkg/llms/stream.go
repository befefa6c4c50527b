package llms

import (
	"io"
	"iter"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// SingleUse wraps seq so it can be ranged only once,
// the next range yields ErrStreamConsumed.
func SingleUse(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}
		seq(yield)
	}
}

// ErrorStream returns a sequence that yields only err.
func ErrorStream(err error) iter.Seq2[string, error] {
	return SingleUse(func(yield func(string, error) bool) {
		yield("", err)
	})
}

// Collect drains the stream and returns the concatenated text.
// On error the text received so far is returned with the error.
func Collect(seq iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for chunk, err := range seq {
		if err != nil {
			return b.String(), err
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

// StreamTo writes every delta to w as it arrives, and returns the full text.
func StreamTo(w io.Writer, seq iter.Seq2[string, error]) (string, error) {
	var b strings.Builder
	for chunk, err := range seq {
		if err != nil {
			return b.String(), err
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return b.String(), errors.Wrap(err, "failed to write chunk")
		}
		b.WriteString(chunk)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return b.String(), errors.Wrap(err, "failed to write chunk")
	}
	return b.String(), nil
}
