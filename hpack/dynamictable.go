package hpack

// entryOverhead is RFC 7541 §4.1's fixed per-entry accounting overhead: an
// entry's size is len(name)+len(value)+32, modeling the cost of storing it
// in a real table (pointers, etc.) rather than just its octets.
const entryOverhead = 32

// dynamicTable is the per-direction HPACK dynamic table (RFC 7541 §2.3.2).
// Encoders and decoders each keep one; entries are inserted at the front
// (index 62 is the most recently inserted) and evicted from the back once
// the running size exceeds maxSize.
type dynamicTable struct {
	entries []HeaderField // entries[0] is most recently inserted
	size    int
	maxSize int // current effective size limit
	capSize int // SETTINGS_HEADER_TABLE_SIZE ceiling negotiated for this connection
}

func newDynamicTable(capSize int) *dynamicTable {
	return &dynamicTable{maxSize: capSize, capSize: capSize}
}

// setMaxSize applies a dynamic table size update, evicting entries as
// needed. n must already be clamped to capSize by the caller (RFC 7541
// §6.3 requires new >= 0 and new <= the SETTINGS-negotiated limit).
func (t *dynamicTable) setMaxSize(n int) {
	t.maxSize = n
	t.evictTo(n)
}

func (t *dynamicTable) evictTo(limit int) {
	for t.size > limit && len(t.entries) > 0 {
		last := t.entries[len(t.entries)-1]
		t.size -= len(last.Name) + len(last.Value) + entryOverhead
		t.entries = t.entries[:len(t.entries)-1]
	}
}

// insert adds hf to the table, evicting older entries to make room. An
// entry larger than maxSize on its own results in an empty table, per RFC
// 7541 §4.4.
func (t *dynamicTable) insert(hf HeaderField) {
	cost := len(hf.Name) + len(hf.Value) + entryOverhead
	if cost > t.maxSize {
		t.entries = t.entries[:0]
		t.size = 0
		return
	}
	t.entries = append([]HeaderField{{Name: hf.Name, Value: hf.Value}}, t.entries...)
	t.size += cost
	t.evictTo(t.maxSize)
}

// at returns the dynamic-table entry for a 1-based dynamic index (i.e. the
// caller has already subtracted the static table's 61 entries).
func (t *dynamicTable) at(dynIdx int) (HeaderField, bool) {
	if dynIdx < 1 || dynIdx > len(t.entries) {
		return HeaderField{}, false
	}
	return t.entries[dynIdx-1], true
}

// find looks for an exact or name-only match in the dynamic table, returning
// a 1-based dynamic index and whether the value also matched.
func (t *dynamicTable) find(hf HeaderField) (dynIdx int, valueMatch bool) {
	nameIdx := 0
	for i, e := range t.entries {
		if e.Name != hf.Name {
			continue
		}
		if nameIdx == 0 {
			nameIdx = i + 1
		}
		if e.Value == hf.Value {
			return i + 1, true
		}
	}
	return nameIdx, false
}
