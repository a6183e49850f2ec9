package httpclient

import (
	"net/http"
	"time"

	"morningbrief/internal/shared/logging"
)

// DefaultTimeout bounds every outbound call when the caller passes zero.
const DefaultTimeout = 30 * time.Second

// New returns an http.Client configured for outbound requests.
//
// Every upstream call in the pipeline goes through a client built here so
// that no request can wait without bound.
func New(timeout time.Duration, logger logging.Logger) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: Transport(logger),
	}
}

// Transport returns an http.Transport clone that honours HTTP(S)_PROXY and
// NO_PROXY.
func Transport(logger logging.Logger) *http.Transport {
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		logging.OrNop(logger).Warn("default transport is %T, building a fresh one", http.DefaultTransport)
		return &http.Transport{Proxy: http.ProxyFromEnvironment}
	}

	transport := base.Clone()
	transport.Proxy = http.ProxyFromEnvironment
	return transport
}
