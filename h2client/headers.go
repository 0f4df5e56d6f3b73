package h2client

import (
	"strings"

	"github.com/h2vex/engine/hpack"
	"golang.org/x/net/http/httpguts"
)

// forbiddenOutgoing is the HTTP/2-specific forbidden header set (base spec
// §6): these are stripped before reaching the HPACK encoder. host is folded
// into :authority upstream of this check and therefore also forbidden here.
var forbiddenOutgoing = map[string]bool{
	"connection":       true,
	"keep-alive":       true,
	"proxy-connection": true,
	"transfer-encoding": true,
	"upgrade":          true,
	"host":             true,
}

// sensitiveDefaults mirrors hpack.defaultSensitiveNames so callers building
// requests don't need to import hpack just to mark a header sensitive.
var sensitiveDefaults = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
}

// buildHeaderFields converts h into the ordered hpack.HeaderField list the
// protocol layer consumes, stripping forbidden connection-specific headers
// (the `te: trailers` exception per base spec §6) and rejecting
// structurally invalid field names via httpguts.
func buildHeaderFields(h *Header) ([]hpack.HeaderField, error) {
	if h == nil {
		return nil, nil
	}
	var fields []hpack.HeaderField
	for _, name := range h.Names() {
		if forbiddenOutgoing[name] {
			continue
		}
		if name == "te" {
			values := h.Values(name)
			keep := false
			for _, v := range values {
				if strings.EqualFold(strings.TrimSpace(v), "trailers") {
					keep = true
					break
				}
			}
			if !keep {
				continue
			}
		}
		if !httpguts.ValidHeaderFieldName(name) {
			return nil, &Error{Category: InvalidRequest, Cause: errInvalidHeaderName(name)}
		}
		for _, v := range h.Values(name) {
			if name == "te" && !strings.EqualFold(strings.TrimSpace(v), "trailers") {
				continue
			}
			fields = append(fields, hpack.HeaderField{
				Name:      name,
				Value:     v,
				Sensitive: sensitiveDefaults[name],
			})
		}
	}
	return fields, nil
}

type errInvalidHeaderName string

func (e errInvalidHeaderName) Error() string { return "h2client: invalid header field name: " + string(e) }

// headerFromFields converts a decoded response header list back into a
// Header, skipping HTTP/2 pseudo-headers (:status and friends), which
// belong in Response.StatusCode, not Response.Headers.
func headerFromFields(fields []hpack.HeaderField) *Header {
	h := NewHeader()
	for _, f := range fields {
		if strings.HasPrefix(f.Name, ":") {
			continue
		}
		h.Add(f.Name, f.Value)
	}
	return h
}
