// Package oracle wraps the advisory term and date resolution services the
// normalizer consults. Answers are suggestions; callers validate them.
package oracle

import (
	"context"
	"errors"

	"github.com/staymatch/backend/internal/storage/models"
)

// ErrUnavailable wraps every transport, timeout or format failure of an oracle.
var ErrUnavailable = errors.New("oracle unavailable")

// Oracle suggests canonical terms and interprets date expressions.
// An empty answer with a nil error means "no suggestion".
type Oracle interface {
	// ResolveTerm suggests at most one entry of vocabulary for term.
	ResolveTerm(ctx context.Context, term, field string, vocabulary []string) (string, error)
	// ResolveDate interprets text as a date and returns it as YYYY-MM-DD.
	ResolveDate(ctx context.Context, text string, defaultYear int) (string, error)
}

// Extractor turns a free-text request into loosely structured fields.
type Extractor interface {
	ExtractRequest(ctx context.Context, text string) (models.RawRequest, error)
}

// Nop never suggests anything. It stands in when no provider is configured.
type Nop struct{}

func (Nop) ResolveTerm(ctx context.Context, term, field string, vocabulary []string) (string, error) {
	return "", nil
}

func (Nop) ResolveDate(ctx context.Context, text string, defaultYear int) (string, error) {
	return "", nil
}

func (Nop) ExtractRequest(ctx context.Context, text string) (models.RawRequest, error) {
	return models.RawRequest{}, errors.Join(ErrUnavailable, errors.New("no language model configured"))
}
