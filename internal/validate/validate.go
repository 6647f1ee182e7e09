// Package validate is the boundary to the external model service that
// judges field submissions. The model call itself is opaque: this
// package owns the request shape, the bounded retry policy, and the
// distinction between a transport failure and a malformed verdict.
package validate

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/feynlab/feynlab/pkg/types"
)

const (
	// MaxRetries bounds transport retries for one validation request.
	MaxRetries = 3
	// RetryInitialInterval is the first backoff delay; it doubles each
	// attempt up to RetryMaxInterval.
	RetryInitialInterval = time.Second
	RetryMaxInterval     = 30 * time.Second
)

// ErrMalformedVerdict marks a response body that could not be parsed
// into the verdict shape. Inconclusive, not fatal: the field reverts to
// its pre-request status and no attempt is recorded.
var ErrMalformedVerdict = errors.New("malformed verdict")

// Request is what goes out to the model: a system instruction, the
// post-compression turns, and an output cap.
type Request struct {
	System    string
	Turns     []types.Turn
	MaxTokens int
}

// ModelClient is the opaque request/response boundary. Implementations
// return ErrMalformedVerdict (possibly wrapped) when the response body
// does not parse; any other error is treated as transport and retried.
type ModelClient interface {
	Validate(ctx context.Context, req Request) (*types.Verdict, error)
}

// Orchestrator wraps a ModelClient with the retry policy. Construct one
// per session; there is no shared global instance.
type Orchestrator struct {
	client ModelClient
	log    zerolog.Logger

	// newBackoff is swapped in tests to avoid real waits.
	newBackoff func(ctx context.Context) backoff.BackOff
}

// NewOrchestrator creates an orchestrator around the given client.
func NewOrchestrator(client ModelClient, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{client: client, log: log, newBackoff: newRetryBackoff}
}

// newRetryBackoff builds the exponential backoff used for transport
// errors: jittered, doubling, context-aware, capped at MaxRetries.
func newRetryBackoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = RetryInitialInterval
	b.MaxInterval = RetryMaxInterval
	b.RandomizationFactor = 0.5
	b.Multiplier = 2.0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, MaxRetries), ctx)
}

// Validate sends the request, retrying transport failures with
// exponential backoff. A malformed verdict is returned immediately
// without retry: the response arrived, it just did not parse, and
// re-asking the same question is the caller's decision. Exhausted
// retries surface the final transport error; the caller's state and
// unsent input are untouched either way.
func (o *Orchestrator) Validate(ctx context.Context, req Request) (*types.Verdict, error) {
	var verdict *types.Verdict

	operation := func() error {
		v, err := o.client.Validate(ctx, req)
		if err != nil {
			if errors.Is(err, ErrMalformedVerdict) {
				return backoff.Permanent(err)
			}
			o.log.Warn().Err(err).Msg("validation request failed, retrying")
			return err
		}
		verdict = v
		return nil
	}

	if err := backoff.Retry(operation, o.newBackoff(ctx)); err != nil {
		return nil, err
	}
	return verdict, nil
}
