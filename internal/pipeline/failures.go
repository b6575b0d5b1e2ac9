package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"notepipe/internal/ledger"
	"notepipe/internal/services"
	"notepipe/internal/services/gemini"
	"notepipe/internal/services/notebook"
)

// Failure codes persisted in the error_code header field.
const (
	codeTimeout      = "TIMEOUT"
	codeRateLimit    = "RATE_LIMIT"
	codeLLMCall      = "LLM_CALL"
	codeLLMParse     = "LLM_PARSE"
	codeAPIPrefix    = "API_"
	codeAPITimeout   = "API_TIMEOUT"
	codeAPITransient = "API_TRANSIENT"
	codeInvalid      = "INVALID"
)

// classifyFailure maps an item-level error to its persisted failure code and
// any extra header fields. ok=false means the error is outside the taxonomy
// and must propagate: swallowing an unknown error here could mask a corrupted
// ledger, and a crash is the better outcome.
func classifyFailure(err error) (code string, extra []ledger.Field, ok bool) {
	// An operator interrupt is not an item failure.
	if errors.Is(err, context.Canceled) {
		return "", nil, false
	}

	var rateErr *gemini.RateLimitError
	if errors.As(err, &rateErr) {
		if rateErr.RetryAfter > 0 {
			extra = append(extra, ledger.F(ledger.KeyRetryAfter, rateErr.RetryAfter.String()))
		}
		return codeRateLimit, extra, true
	}

	var statusErr *notebook.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.Code == http.StatusTooManyRequests {
			return codeRateLimit, nil, true
		}
		return fmt.Sprintf("%s%d", codeAPIPrefix, statusErr.Code), nil, true
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return codeLLMParse, nil, true
	}

	switch {
	case errors.Is(err, services.ErrTimeout):
		return codeTimeout, nil, true
	case errors.Is(err, services.ErrRateLimit):
		return codeRateLimit, nil, true
	case errors.Is(err, services.ErrExternalTool):
		return codeLLMCall, nil, true
	case errors.Is(err, services.ErrTransient):
		return codeAPITransient, nil, true
	case services.Terminal(err):
		return codeInvalid, nil, true
	}

	// Connection-level failures from the HTTP boundary surface as raw
	// transport errors once the fixed-delay policy is exhausted.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return codeAPITimeout, nil, true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return codeAPITransient, nil, true
	}
	return "", nil, false
}
