package gateway

import (
	"context"
	"errors"
	"net"

	"github.com/adshao/go-binance/v2/common"
)

type errorClass int

const (
	classRetryable errorClass = iota // network trouble, rate limiting
	classTerminal                    // auth, funds, rejection, malformed order
)

// Binance error codes that are worth retrying. Everything else reported by
// the exchange, and anything we cannot classify, fails immediately.
var retryableCodes = map[int64]bool{
	-1000: true, // UNKNOWN (exchange internal)
	-1001: true, // DISCONNECTED
	-1003: true, // TOO_MANY_REQUESTS
	-1007: true, // TIMEOUT
	-1008: true, // SERVER_BUSY
}

// classify buckets an error per the retry policy. Context cancellation is
// terminal so shutdown never spins inside a backoff loop.
func classify(err error) errorClass {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return classTerminal
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if retryableCodes[apiErr.Code] {
			return classRetryable
		}
		// HTTP-level throttling and server errors surface with code 0.
		if apiErr.Code == 0 {
			return classRetryable
		}
		return classTerminal
	}

	// Transport-level failures (DNS, reset connections, timeouts).
	var netErr net.Error
	if errors.As(err, &netErr) {
		return classRetryable
	}

	// Anything we cannot classify fails immediately.
	return classTerminal
}
