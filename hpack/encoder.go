package hpack

// defaultSensitiveNames seeds the Encoder's sensitive-name set per base spec
// §4.4; callers may add to this set for custom credential-bearing headers.
var defaultSensitiveNames = []string{"authorization", "cookie", "set-cookie"}

// Encoder turns a header list into an HPACK header block, maintaining an
// encoder-side dynamic table across calls. It is not safe for concurrent
// use; each h2conn owns one, matching the one-encoder-per-connection rule
// in RFC 7541 §2.3.2.
type Encoder struct {
	table *dynamicTable

	// sensitive holds lower-cased header names that must always
	// be emitted as "never indexed" literals (RFC 7541 §6.2.3), regardless
	// of table space. Seeded from defaultSensitiveNames; callers may add
	// more via AddSensitiveName.
	sensitive map[string]bool

	pendingSizeUpdate bool
	pendingSize       int
}

// NewEncoder returns an Encoder whose dynamic table is bounded by maxTableSize
// (the connection's outgoing SETTINGS_HEADER_TABLE_SIZE, or the peer's
// advertised value once learned).
func NewEncoder(maxTableSize int) *Encoder {
	e := &Encoder{
		table:     newDynamicTable(maxTableSize),
		sensitive: make(map[string]bool, len(defaultSensitiveNames)),
	}
	for _, n := range defaultSensitiveNames {
		e.sensitive[n] = true
	}
	return e
}

// AddSensitiveName marks an additional header name as never-indexed.
func (e *Encoder) AddSensitiveName(name string) {
	e.sensitive[name] = true
}

// SetMaxDynamicTableSize applies a new table size, to be used when the peer
// updates SETTINGS_HEADER_TABLE_SIZE; it is reflected to the peer as a
// dynamic table size update prefixed to the next emitted header block (RFC
// 7541 §6.3).
func (e *Encoder) SetMaxDynamicTableSize(n int) {
	if n > e.table.capSize {
		n = e.table.capSize
	}
	e.pendingSizeUpdate = true
	e.pendingSize = n
}

// EncodeHeaders appends the HPACK encoding of fields to dst and returns it.
func (e *Encoder) EncodeHeaders(dst []byte, fields []HeaderField) []byte {
	if e.pendingSizeUpdate {
		e.table.setMaxSize(e.pendingSize)
		dst = appendInt(dst, 0x20, 5, uint64(e.pendingSize))
		e.pendingSizeUpdate = false
	}

	for _, hf := range fields {
		dst = e.encodeField(dst, hf)
	}
	return dst
}

func (e *Encoder) encodeField(dst []byte, hf HeaderField) []byte {
	if hf.Sensitive || e.sensitive[hf.Name] {
		return e.encodeLiteral(dst, hf, 0x10, false)
	}

	if idx, ok := staticFieldIndex[hf]; ok {
		return appendInt(dst, 0x80, 7, uint64(idx))
	}
	if dynIdx, full := e.table.find(hf); full {
		return appendInt(dst, 0x80, 7, uint64(61+dynIdx))
	}

	return e.encodeLiteral(dst, hf, 0x40, true)
}

// encodeLiteral emits a literal header field representation. firstByteMask
// selects the representation: 0x40 = with incremental indexing (RFC 7541
// §6.2.1), 0x10 = never indexed (§6.2.3). The name is sent as an index when
// the static table, or failing that the dynamic table, has an entry with
// that name, and as a literal string otherwise; withIndexing controls
// whether the pair is inserted into the dynamic table afterward.
func (e *Encoder) encodeLiteral(dst []byte, hf HeaderField, firstByteMask byte, withIndexing bool) []byte {
	nameIdx := 0
	if si, ok := staticNameIndex[hf.Name]; ok {
		nameIdx = si
	} else if di, _ := e.table.find(HeaderField{Name: hf.Name}); di != 0 {
		nameIdx = 61 + di
	}

	if nameIdx != 0 {
		prefixBits := uint8(6)
		if firstByteMask == 0x10 {
			prefixBits = 4
		}
		dst = appendInt(dst, firstByteMask, prefixBits, uint64(nameIdx))
	} else {
		dst = append(dst, firstByteMask)
		dst = appendString(dst, hf.Name)
	}
	dst = appendString(dst, hf.Value)

	if withIndexing {
		e.table.insert(hf)
	}
	return dst
}
