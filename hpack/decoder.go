package hpack

// Decoder turns an HPACK header block back into a header list, maintaining
// a decoder-side dynamic table across calls. Not safe for concurrent use;
// each h2conn owns one.
type Decoder struct {
	table *dynamicTable

	// MaxDecodedHeaderBytes bounds the total name+value bytes a single
	// DecodeHeaders call may produce, guarding against decompression-bomb
	// header blocks (base spec §4.3/§7). Zero means unbounded.
	MaxDecodedHeaderBytes int
}

// NewDecoder returns a Decoder whose dynamic table is bounded by
// maxTableSize (this side's advertised SETTINGS_HEADER_TABLE_SIZE).
func NewDecoder(maxTableSize int) *Decoder {
	return &Decoder{
		table:                 newDynamicTable(maxTableSize),
		MaxDecodedHeaderBytes: 16 << 20,
	}
}

// DecodeHeaders decodes an HPACK header block, appending fields to dst.
func (d *Decoder) DecodeHeaders(dst []HeaderField, block []byte) ([]HeaderField, error) {
	off := 0
	decodedBytes := 0
	sawFieldAfterUpdate := false

	for off < len(block) {
		b := block[off]

		switch {
		case b&0x80 != 0: // indexed header field (RFC 7541 §6.1)
			sawFieldAfterUpdate = true
			idx, n, err := readInt(block, off, 7)
			if err != nil {
				return dst, err
			}
			off += n
			hf, err := d.lookup(int(idx))
			if err != nil {
				return dst, err
			}
			decodedBytes += len(hf.Name) + len(hf.Value)
			dst = append(dst, hf)

		case b&0x40 != 0: // literal with incremental indexing (§6.2.1)
			sawFieldAfterUpdate = true
			hf, n, err := d.readLiteral(block, off, 6)
			if err != nil {
				return dst, err
			}
			off += n
			d.table.insert(hf)
			decodedBytes += len(hf.Name) + len(hf.Value)
			dst = append(dst, hf)

		case b&0x20 != 0: // dynamic table size update (§6.3)
			if sawFieldAfterUpdate {
				return dst, ErrDynamicTableUpdateOrder
			}
			n64, n, err := readInt(block, off, 5)
			if err != nil {
				return dst, err
			}
			if int(n64) > d.table.capSize {
				return dst, ErrCompression
			}
			d.table.setMaxSize(int(n64))
			off += n

		default: // literal without indexing (0x00) or never indexed (0x10), §6.2.2/§6.2.3
			sawFieldAfterUpdate = true
			hf, n, err := d.readLiteral(block, off, 4)
			if err != nil {
				return dst, err
			}
			hf.Sensitive = b&0x10 != 0
			off += n
			decodedBytes += len(hf.Name) + len(hf.Value)
			dst = append(dst, hf)
		}

		if d.MaxDecodedHeaderBytes > 0 && decodedBytes > d.MaxDecodedHeaderBytes {
			return dst, ErrHeaderListTooLarge
		}
	}

	return dst, nil
}

func (d *Decoder) lookup(idx int) (HeaderField, error) {
	if idx >= 1 && idx <= len(staticTable) {
		return staticTable[idx-1], nil
	}
	if hf, ok := d.table.at(idx - len(staticTable)); ok {
		return hf, nil
	}
	return HeaderField{}, ErrIndexOutOfRange
}

// readLiteral decodes a literal header field representation (indexed name
// or literal name, followed by a literal value) starting at off, where
// prefixBits is the representation's name-index prefix width.
func (d *Decoder) readLiteral(block []byte, off int, prefixBits uint8) (HeaderField, int, error) {
	nameIdx, n, err := readInt(block, off, prefixBits)
	if err != nil {
		return HeaderField{}, 0, err
	}
	pos := off + n

	var name string
	if nameIdx == 0 {
		var sn int
		name, sn, err = readString(block, pos)
		if err != nil {
			return HeaderField{}, 0, err
		}
		pos += sn
	} else {
		hf, err := d.lookup(int(nameIdx))
		if err != nil {
			return HeaderField{}, 0, err
		}
		name = hf.Name
	}

	value, vn, err := readString(block, pos)
	if err != nil {
		return HeaderField{}, 0, err
	}
	pos += vn

	return HeaderField{Name: name, Value: value}, pos - off, nil
}
