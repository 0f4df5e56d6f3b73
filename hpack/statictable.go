package hpack

// HeaderField is a single name/value header pair as carried through HPACK
// and the rest of the engine.
type HeaderField struct {
	Name  string
	Value string

	// Sensitive marks a field for "never indexed" literal representation
	// (RFC 7541 §6.2.3), so intermediaries and the peer's dynamic table
	// never persist it (e.g. Authorization, Cookie).
	Sensitive bool
}

// staticTable is RFC 7541 Appendix A verbatim: 61 fixed entries, indices
// 1-61. Entries with an empty Value are name-only; a header field matching
// one of these by name can still be indexed (name match) even when its
// value differs.
var staticTable = [61]HeaderField{
	{Name: ":authority"},
	{Name: ":method", Value: "GET"},
	{Name: ":method", Value: "POST"},
	{Name: ":path", Value: "/"},
	{Name: ":path", Value: "/index.html"},
	{Name: ":scheme", Value: "http"},
	{Name: ":scheme", Value: "https"},
	{Name: ":status", Value: "200"},
	{Name: ":status", Value: "204"},
	{Name: ":status", Value: "206"},
	{Name: ":status", Value: "304"},
	{Name: ":status", Value: "400"},
	{Name: ":status", Value: "404"},
	{Name: ":status", Value: "500"},
	{Name: "accept-charset"},
	{Name: "accept-encoding", Value: "gzip, deflate"},
	{Name: "accept-language"},
	{Name: "accept-ranges"},
	{Name: "accept"},
	{Name: "access-control-allow-origin"},
	{Name: "age"},
	{Name: "allow"},
	{Name: "authorization"},
	{Name: "cache-control"},
	{Name: "content-disposition"},
	{Name: "content-encoding"},
	{Name: "content-language"},
	{Name: "content-length"},
	{Name: "content-location"},
	{Name: "content-range"},
	{Name: "content-type"},
	{Name: "cookie"},
	{Name: "date"},
	{Name: "etag"},
	{Name: "expect"},
	{Name: "expires"},
	{Name: "from"},
	{Name: "host"},
	{Name: "if-match"},
	{Name: "if-modified-since"},
	{Name: "if-none-match"},
	{Name: "if-range"},
	{Name: "if-unmodified-since"},
	{Name: "last-modified"},
	{Name: "link"},
	{Name: "location"},
	{Name: "max-forwards"},
	{Name: "proxy-authenticate"},
	{Name: "proxy-authorization"},
	{Name: "range"},
	{Name: "referer"},
	{Name: "refresh"},
	{Name: "retry-after"},
	{Name: "server"},
	{Name: "set-cookie"},
	{Name: "strict-transport-security"},
	{Name: "transfer-encoding"},
	{Name: "user-agent"},
	{Name: "vary"},
	{Name: "via"},
	{Name: "www-authenticate"},
}

// staticNameIndex maps a header name to the first static table index (1-based)
// carrying it, for name-only matches during encoding.
var staticNameIndex = make(map[string]int, len(staticTable))

// staticFieldIndex maps an exact name+value pair to its static table index
// (1-based), for full indexed-field matches during encoding.
var staticFieldIndex = make(map[HeaderField]int, len(staticTable))

func init() {
	for i, hf := range staticTable {
		idx := i + 1
		if _, ok := staticNameIndex[hf.Name]; !ok {
			staticNameIndex[hf.Name] = idx
		}
		staticFieldIndex[HeaderField{Name: hf.Name, Value: hf.Value}] = idx
	}
}
