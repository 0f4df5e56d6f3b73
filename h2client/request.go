// Package h2client is the public facade: request/response value objects,
// the error taxonomy, header stripping/validation, the interceptor chain,
// and the glue wiring a dialed transport through h2conn, quality, and
// admission to produce a single RoundTrip entry point.
//
// Grounded on dgrr-http2's Dialer/tryDial for the TLS dial convenience and
// its top-level client.go request/response shape, generalized to this
// spec's richer Request/Response/Metadata surface.
package h2client

import (
	"strings"
	"time"
)

// Header is a case-insensitive, order-preserving, multi-value header list.
// Names are stored canonicalized (lowercase, matching HTTP/2's wire
// requirement that field names be lowercase) but Values preserves insertion
// order for repeated names.
type Header struct {
	names  []string
	values map[string][]string
}

// NewHeader returns an empty Header.
func NewHeader() *Header {
	return &Header{values: make(map[string][]string)}
}

func canonKey(name string) string { return strings.ToLower(name) }

// Add appends value under name, preserving any existing values for name and
// recording name's first-seen position for Names().
func (h *Header) Add(name, value string) {
	k := canonKey(name)
	if _, ok := h.values[k]; !ok {
		h.names = append(h.names, k)
	}
	h.values[k] = append(h.values[k], value)
}

// Set replaces any existing values for name with a single value.
func (h *Header) Set(name, value string) {
	k := canonKey(name)
	if _, ok := h.values[k]; !ok {
		h.names = append(h.names, k)
	}
	h.values[k] = []string{value}
}

// Get returns the first value for name, or "" if absent.
func (h *Header) Get(name string) string {
	vs := h.values[canonKey(name)]
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}

// Values returns every value for name in insertion order.
func (h *Header) Values(name string) []string { return h.values[canonKey(name)] }

// Names returns every distinct header name present, in first-seen order.
func (h *Header) Names() []string { return h.names }

// Request is the public request value object (base spec §6).
type Request struct {
	Method    string
	Authority string
	Scheme    string
	Path      string
	Headers   *Header
	Body      []byte
	Deadline  time.Time
	Metadata  Metadata
}

// Response is the public response value object (base spec §6).
type Response struct {
	StatusCode int
	Headers    *Header
	Body       []byte
	Elapsed    time.Duration
	Err        error
}

// Metadata carries the reserved per-request keys from base spec §6 plus any
// caller-defined entries, with typed accessors for the reserved ones so
// callers get compile-time-checked access without this package needing to
// understand proxy/redirect semantics.
type Metadata map[string]any

const (
	keyExplicitTimeout             = "explicit_timeout"
	keyFollowRedirects             = "follow_redirects"
	keyMaxRedirects                = "max_redirects"
	keyIsCrossSite                 = "is_cross_site"
	keyAllowHTTPSToHTTPDowngrade   = "allow_https_to_http_downgrade"
	keyEnforceRedirectTotalTimeout = "enforce_redirect_total_timeout"
	keyProxySettings               = "proxy.settings"
	keyProxyAbsoluteForm            = "proxy.absolute_form"
	keyProxyDisabled                = "proxy.disabled"
	keyBackgroundReplayDedupeKey    = "background.replay_dedupe_key"
)

func boolValue(m Metadata, key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// ExplicitTimeout reports whether the caller opted this request out of
// adaptive timeout scaling (base spec §4.9): when true, the deadline passes
// through unscaled.
func (m Metadata) ExplicitTimeout() (bool, bool) { return boolValue(m, keyExplicitTimeout) }

// FollowRedirects is passed through untouched for an out-of-scope redirect
// layer to consume.
func (m Metadata) FollowRedirects() (bool, bool) { return boolValue(m, keyFollowRedirects) }

// MaxRedirects is passed through untouched for an out-of-scope redirect layer.
func (m Metadata) MaxRedirects() (int, bool) {
	v, ok := m[keyMaxRedirects]
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

// IsCrossSite is passed through untouched for an out-of-scope cookie/CORS layer.
func (m Metadata) IsCrossSite() (bool, bool) { return boolValue(m, keyIsCrossSite) }

// AllowHTTPSToHTTPDowngrade is passed through untouched for an out-of-scope redirect layer.
func (m Metadata) AllowHTTPSToHTTPDowngrade() (bool, bool) {
	return boolValue(m, keyAllowHTTPSToHTTPDowngrade)
}

// EnforceRedirectTotalTimeout is passed through untouched for an out-of-scope redirect layer.
func (m Metadata) EnforceRedirectTotalTimeout() (bool, bool) {
	return boolValue(m, keyEnforceRedirectTotalTimeout)
}

// ProxySettings is passed through untouched for an out-of-scope proxy layer.
func (m Metadata) ProxySettings() (any, bool) {
	v, ok := m[keyProxySettings]
	return v, ok
}

// ProxyAbsoluteForm is passed through untouched for an out-of-scope proxy layer.
func (m Metadata) ProxyAbsoluteForm() (bool, bool) { return boolValue(m, keyProxyAbsoluteForm) }

// ProxyDisabled is passed through untouched for an out-of-scope proxy layer.
func (m Metadata) ProxyDisabled() (bool, bool) { return boolValue(m, keyProxyDisabled) }

// BackgroundReplayDedupeKey is passed through untouched for an out-of-scope
// background-execution bridge.
func (m Metadata) BackgroundReplayDedupeKey() (string, bool) {
	v, ok := m[keyBackgroundReplayDedupeKey]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
