package utils

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// FetchKind classifies why a fetch did not produce a usable page
type FetchKind int

const (
	// KindNetwork covers DNS, connection refused, resets and other transport failures
	KindNetwork FetchKind = iota
	// KindTimeout means the per-request deadline elapsed
	KindTimeout
	// KindBlocked means the server actively refused automated access
	KindBlocked
	// KindStatus is any other non-2xx response
	KindStatus
	// KindTLS means certificate verification failed
	KindTLS
)

func (k FetchKind) String() string {
	switch k {
	case KindNetwork:
		return "network_error"
	case KindTimeout:
		return "timeout"
	case KindBlocked:
		return "blocked"
	case KindStatus:
		return "http_status"
	case KindTLS:
		return "tls_error"
	default:
		return "unknown"
	}
}

// FetchError is the closed error taxonomy returned by every Fetcher
type FetchError struct {
	Kind       FetchKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the fetch kind of err and whether err is a FetchError at all
func KindOf(err error) (FetchKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return KindNetwork, false
}

// IsBlocked reports whether err signals bot protection or rate limiting
func IsBlocked(err error) bool {
	kind, ok := KindOf(err)
	return ok && kind == KindBlocked
}

// blockingVocabulary is matched against non-2xx bodies and challenge pages
var blockingVocabulary = []string{
	"access denied", "forbidden", "cloudflare", "bot protection", "rate limit",
	"too many requests", "captcha", "security check", "attention required",
}

// challengeMarkers identify interstitial pages served with status 200
var challengeMarkers = []string{
	"cf-browser-verification", "cf-challenge", "challenge-platform",
	"g-recaptcha", "h-captcha", "px-captcha",
}

// classifyStatus maps a response to a FetchError, or nil when the page is usable
func classifyStatus(url string, status int, body []byte) *FetchError {
	if status >= 200 && status < 300 {
		if looksLikeChallenge(body) {
			return &FetchError{Kind: KindBlocked, URL: url, StatusCode: status}
		}
		return nil
	}

	switch status {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return &FetchError{Kind: KindBlocked, URL: url, StatusCode: status}
	case http.StatusServiceUnavailable:
		if containsAny(strings.ToLower(string(body)), blockingVocabulary) {
			return &FetchError{Kind: KindBlocked, URL: url, StatusCode: status}
		}
	}
	return &FetchError{Kind: KindStatus, URL: url, StatusCode: status}
}

func looksLikeChallenge(body []byte) bool {
	// Real storefronts are rarely this small; challenge pages usually are.
	if len(body) > 64*1024 {
		return false
	}
	return containsAny(strings.ToLower(string(body)), challengeMarkers)
}

// classifyTransport maps a client.Do error into the taxonomy
func classifyTransport(url string, err error) *FetchError {
	if isTLSError(err) {
		return &FetchError{Kind: KindTLS, URL: url, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, URL: url, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, URL: url, Err: err}
	}
	return &FetchError{Kind: KindNetwork, URL: url, Err: err}
}

func isTLSError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	return errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostErr) ||
		errors.As(err, &invalidErr)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
