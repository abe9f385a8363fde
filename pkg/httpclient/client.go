// Package httpclient provides a centralized HTTP client configuration for
// commitgate's supporting endpoints (rule bundles, metrics push). It offers
// a retryable HTTP client with custom headers and proxy configuration.
// The semantic stage does not use this client; its call policy is a single
// attempt with no retries.
package httpclient

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"os"
	"sync/atomic"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
)

// ignoreProxy controls whether the HTTP_PROXY environment variable should be
// ignored. When set to true, no proxy will be configured even if HTTP_PROXY
// is set. Uses atomic operations for thread-safe access.
var ignoreProxy atomic.Bool

// insecureTLS controls whether server certificates are verified. Off by
// default; the --insecure flag enables it for self-signed internal
// endpoints.
var insecureTLS atomic.Bool

// SetIgnoreProxy sets whether to ignore the HTTP_PROXY environment variable.
// This is useful in CI runners where HTTP_PROXY is set but should not be used.
func SetIgnoreProxy(ignore bool) {
	ignoreProxy.Store(ignore)
}

// SetInsecureTLS disables TLS certificate verification for gate HTTP clients.
func SetInsecureTLS(insecure bool) {
	insecureTLS.Store(insecure)
}

// HeaderRoundTripper is an http.RoundTripper that adds default headers to requests.
// Headers are only added if they're not already present in the request.
type HeaderRoundTripper struct {
	Headers map[string]string
	Next    http.RoundTripper
}

// RoundTrip adds default headers when they're not present on the request
// and delegates to the next RoundTripper.
func (hrt *HeaderRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if hrt.Next == nil {
		return nil, http.ErrNotSupported
	}

	if hrt.Headers != nil {
		for k, v := range hrt.Headers {
			if req.Header.Get(k) == "" {
				req.Header.Set(k, v)
			}
		}
	}

	return hrt.Next.RoundTrip(req)
}

// GateTransport builds the http.RoundTripper shared by all gate HTTP
// clients: default headers, HTTP_PROXY support (unless SetIgnoreProxy(true)
// is called) and optional TLS verification bypass via SetInsecureTLS(true).
// The audit object store reuses it directly.
func GateTransport(defaultHeaders map[string]string) http.RoundTripper {
	tr := &http.Transport{}
	if insecureTLS.Load() {
		// #nosec G402 - opt-in via --insecure for self-signed internal endpoints
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	if !ignoreProxy.Load() {
		proxyServer, useHttpProxy := os.LookupEnv("HTTP_PROXY")
		if useHttpProxy {
			proxyUrl, err := url.Parse(proxyServer)
			if err != nil {
				log.Fatal().Err(err).Str("HTTP_PROXY", proxyServer).Msg("Invalid Proxy URL in HTTP_PROXY environment variable")
			}
			log.Info().Str("proxy", proxyUrl.String()).Msg("Using HTTP_PROXY")
			tr.Proxy = http.ProxyURL(proxyUrl)
		}
	}

	return &HeaderRoundTripper{Headers: defaultHeaders, Next: tr}
}

// GetGateHTTPClient creates and configures a retryable HTTP client for
// commitgate's side-channel traffic. It supports:
//   - Custom default headers
//   - Automatic retry logic for 429 and 5xx errors (except 501)
//   - HTTP proxy support via HTTP_PROXY environment variable (unless SetIgnoreProxy(true) is called)
//   - Optional TLS certificate verification bypass via SetInsecureTLS(true)
//
// Returns a configured *retryablehttp.Client ready for use.
func GetGateHTTPClient(defaultHeaders map[string]string) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.Logger = nil

	client.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if err != nil {
			log.Error().Err(err).Msg("Retrying HTTP request, error occurred")
			return true, nil
		}

		if resp == nil {
			log.Error().Msg("Retrying HTTP request, no response")
			return false, nil
		}

		if resp.StatusCode == 429 || (resp.StatusCode >= 500 && resp.StatusCode != 501) {
			url := ""
			if resp.Request != nil && resp.Request.URL != nil {
				url = resp.Request.URL.String()
			}
			log.Trace().Str("url", url).Int("statusCode", resp.StatusCode).Msg("Retrying HTTP request")
			return true, nil
		}

		return false, nil
	}

	client.HTTPClient.Transport = GateTransport(defaultHeaders)
	return client
}
