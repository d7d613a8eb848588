package engine

import (
	"fmt"

	"github.com/klauspost/compress/s2"
	"github.com/vmihailenco/msgpack/v5"
)

// Document values (docs bucket):
//
//  1. Flags (uvarint).
//  2. Data size (uvarint).
//  3. Index size (uvarint).
//  4. Data: msgpack of the stored fields, s2-compressed if vfCompressed is set.
//  5. Index: number of entries (uvarint), then each postings key (varbytes).
//
// The index part records the postings keys contributed by the document, so
// deletion does not depend on the analyzer that was used when it was added.
type valueFlags uint64

const (
	vfVerBit0 = valueFlags(1 << iota)
	vfVerBit1
	vfVerBit2
	vfVerBit3
	vfCompressionBit0

	vfVerMask       = (vfVerBit0 | vfVerBit1 | vfVerBit2 | vfVerBit3)
	vfVer1          = vfVerBit0
	vfCompressed    = vfCompressionBit0
	vfSupportedMask = (vfVer1 | vfCompressed)
	vfDefault       = vfVer1

	// values with less data than this are never compressed
	compressionThreshold = 256
)

type storedValue struct {
	Name  string    `msgpack:"n"`
	Kind  FieldKind `msgpack:"k"`
	Str   string    `msgpack:"s,omitempty"`
	Int   int64     `msgpack:"i,omitempty"`
	Float float64   `msgpack:"f,omitempty"`
}

type docValue struct {
	Flags  valueFlags
	Data   []byte
	Keys   [][]byte
	stored []storedValue
}

func encodeDocValue(doc *Document, keys [][]byte, compress bool) ([]byte, error) {
	var stored []storedValue
	for _, f := range doc.Fields {
		if !f.Stored {
			continue
		}
		sv := storedValue{Name: f.Name, Kind: f.Kind}
		switch v := f.Value.(type) {
		case string:
			sv.Str = v
		case int32:
			sv.Int = int64(v)
		case int64:
			sv.Int = v
		case float64:
			sv.Float = v
		}
		stored = append(stored, sv)
	}

	data, err := msgpack.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stored fields using MsgPack: %w", err)
	}
	flags := vfDefault
	if compress && len(data) >= compressionThreshold {
		data = s2.Encode(nil, data)
		flags |= vfCompressed
	}

	var index []byte
	index = appendUvarint(index, uint64(len(keys)))
	for _, k := range keys {
		index = appendVarbytes(index, k)
	}

	buf := make([]byte, 0, 3*4+len(data)+len(index))
	buf = appendUvarint(buf, uint64(flags))
	buf = appendUvarint(buf, uint64(len(data)))
	buf = appendUvarint(buf, uint64(len(index)))
	buf = append(buf, data...)
	buf = append(buf, index...)
	return buf, nil
}

// decodeDocValue decodes the header and index part; stored fields are decoded
// lazily by storedFields.
func decodeDocValue(raw []byte) (*docValue, error) {
	d := makeByteDecoder(raw)
	v, err := d.Uvarint()
	if err != nil {
		return nil, err
	}
	flags := valueFlags(v)
	if flags&^vfSupportedMask != 0 || flags.ver() != vfVer1 {
		return nil, dataErrf(raw, 0, nil, "invalid value: unsupported flags %x", v)
	}
	dataSize, err := d.Uvarinti()
	if err != nil {
		return nil, err
	}
	indexSize, err := d.Uvarinti()
	if err != nil {
		return nil, err
	}
	if len(d.Buf) != dataSize+indexSize {
		return nil, dataErrf(raw, d.Off(), nil, "invalid value: got %d bytes for data+index, expected %d bytes", len(d.Buf), dataSize+indexSize)
	}
	data, _ := d.Raw(dataSize)

	n, err := d.Uvarinti()
	if err != nil {
		return nil, err
	}
	keys := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		k, err := d.VarBytes()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return &docValue{Flags: flags, Data: data, Keys: keys}, nil
}

func (vf valueFlags) ver() valueFlags {
	return vf & vfVerMask
}

func (dv *docValue) storedFields() (StoredDocument, error) {
	data := dv.Data
	if dv.Flags&vfCompressed != 0 {
		var err error
		data, err = s2.Decode(nil, data)
		if err != nil {
			return nil, dataErrf(dv.Data, 0, err, "failed to decompress stored fields")
		}
	}
	var stored []storedValue
	if err := msgpack.Unmarshal(data, &stored); err != nil {
		return nil, dataErrf(data, 0, err, "failed to decode msgpack stored fields")
	}
	doc := make(StoredDocument, 0, len(stored))
	for _, sv := range stored {
		sf := StoredField{Name: sv.Name, Kind: sv.Kind, Stored: true}
		switch sv.Kind {
		case KindString, KindText:
			sf.Value = sv.Str
		case KindInt:
			sf.Value = int32(sv.Int)
		case KindLong:
			sf.Value = sv.Int
		case KindDouble:
			sf.Value = sv.Float
		default:
			return nil, dataErrf(data, 0, nil, "unknown stored field kind %d", sv.Kind)
		}
		doc = append(doc, sf)
	}
	return doc, nil
}
