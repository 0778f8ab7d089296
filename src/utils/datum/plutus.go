package datum

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/fxamacker/cbor/v2"
)

var (
	ErrShapeMismatch = errors.New("datum does not match the expected shape")
	ErrInvalidCbor   = errors.New("invalid plutus data cbor")
)

type Kind int

const (
	KindConstr Kind = iota
	KindMap
	KindList
	KindInt
	KindBytes
)

func (self Kind) String() string {
	switch self {
	case KindConstr:
		return "constr"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	case KindInt:
		return "int"
	case KindBytes:
		return "bytes"
	}
	return "unknown"
}

// CBOR major types
const (
	majorPositiveInt = 0
	majorNegativeInt = 1
	majorByteString  = 2
	majorArray       = 4
	majorMap         = 5
	majorTag         = 6
)

// Tags used by the plutus data encoding
const (
	tagPositiveBignum   = 2
	tagNegativeBignum   = 3
	tagConstrGeneral    = 102
	tagConstrSmallStart = 121
	tagConstrSmallEnd   = 127
	tagConstrLargeStart = 1280
	tagConstrLargeEnd   = 1400
)

type MapEntry struct {
	Key   *PlutusData
	Value *PlutusData
}

// Decoded on-chain datum. Which fields are set depends on Kind:
// Constructor+Fields for constr, Fields for list, Map for map, Int for int and Bytes for bytes.
type PlutusData struct {
	Kind        Kind
	Constructor uint64
	Fields      []*PlutusData
	Map         []MapEntry
	Int         *big.Int
	Bytes       []byte
}

func NewConstr(constructor uint64, fields ...*PlutusData) *PlutusData {
	if fields == nil {
		fields = []*PlutusData{}
	}
	return &PlutusData{Kind: KindConstr, Constructor: constructor, Fields: fields}
}

func NewList(items ...*PlutusData) *PlutusData {
	if items == nil {
		items = []*PlutusData{}
	}
	return &PlutusData{Kind: KindList, Fields: items}
}

func NewMap(entries ...MapEntry) *PlutusData {
	return &PlutusData{Kind: KindMap, Map: entries}
}

func NewInt(v int64) *PlutusData {
	return &PlutusData{Kind: KindInt, Int: big.NewInt(v)}
}

func NewBytes(v []byte) *PlutusData {
	return &PlutusData{Kind: KindBytes, Bytes: v}
}

// Byte string holding UTF-8 text
func NewText(v string) *PlutusData {
	return NewBytes([]byte(v))
}

// Parses hex encoded CBOR, as returned by the provider's inline_datum field
func ParsePlutusData(cborHex string) (out *PlutusData, err error) {
	buf, err := hex.DecodeString(cborHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCbor, err)
	}

	out = new(PlutusData)
	rest, err := cbor.UnmarshalFirst(buf, out)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCbor, err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidCbor, len(rest))
	}
	return
}

// Hex encoded CBOR of the datum
func (self *PlutusData) Hex() (string, error) {
	buf, err := cbor.Marshal(self)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Bytes decoded as UTF-8 text
func (self *PlutusData) Text() (string, bool) {
	if self == nil || self.Kind != KindBytes || !utf8.Valid(self.Bytes) {
		return "", false
	}
	return string(self.Bytes), true
}

// Integer value, if it fits int64
func (self *PlutusData) Int64() (int64, bool) {
	if self == nil || self.Kind != KindInt || self.Int == nil || !self.Int.IsInt64() {
		return 0, false
	}
	return self.Int.Int64(), true
}

// Constructor fields if the datum is a constructor with the given index and exactly n fields
func (self *PlutusData) ConstrFields(constructor uint64, n int) ([]*PlutusData, bool) {
	if self == nil || self.Kind != KindConstr || self.Constructor != constructor || len(self.Fields) != n {
		return nil, false
	}
	return self.Fields, true
}

func (self *PlutusData) UnmarshalCBOR(data []byte) (err error) {
	if len(data) == 0 {
		return ErrInvalidCbor
	}

	switch data[0] >> 5 {
	case majorPositiveInt, majorNegativeInt:
		v := new(big.Int)
		err = cbor.Unmarshal(data, v)
		if err != nil {
			return
		}
		*self = PlutusData{Kind: KindInt, Int: v}

	case majorByteString:
		var v []byte
		err = cbor.Unmarshal(data, &v)
		if err != nil {
			return
		}
		*self = PlutusData{Kind: KindBytes, Bytes: v}

	case majorArray:
		var items []*PlutusData
		err = cbor.Unmarshal(data, &items)
		if err != nil {
			return
		}
		*self = *NewList(items...)

	case majorMap:
		var entries []MapEntry
		entries, err = unmarshalMap(data)
		if err != nil {
			return
		}
		*self = PlutusData{Kind: KindMap, Map: entries}

	case majorTag:
		return self.unmarshalTag(data)

	default:
		return fmt.Errorf("%w: unexpected major type %d", ErrInvalidCbor, data[0]>>5)
	}
	return
}

func (self *PlutusData) unmarshalTag(data []byte) (err error) {
	var tag cbor.RawTag
	err = cbor.Unmarshal(data, &tag)
	if err != nil {
		return
	}

	switch {
	case tag.Number == tagPositiveBignum || tag.Number == tagNegativeBignum:
		v := new(big.Int)
		err = cbor.Unmarshal(data, v)
		if err != nil {
			return
		}
		*self = PlutusData{Kind: KindInt, Int: v}

	case tag.Number >= tagConstrSmallStart && tag.Number <= tagConstrSmallEnd:
		var fields []*PlutusData
		err = cbor.Unmarshal(tag.Content, &fields)
		if err != nil {
			return
		}
		*self = *NewConstr(tag.Number-tagConstrSmallStart, fields...)

	case tag.Number >= tagConstrLargeStart && tag.Number <= tagConstrLargeEnd:
		var fields []*PlutusData
		err = cbor.Unmarshal(tag.Content, &fields)
		if err != nil {
			return
		}
		*self = *NewConstr(tag.Number-tagConstrLargeStart+7, fields...)

	case tag.Number == tagConstrGeneral:
		var general struct {
			_           struct{} `cbor:",toarray"`
			Constructor uint64
			Fields      []*PlutusData
		}
		err = cbor.Unmarshal(tag.Content, &general)
		if err != nil {
			return
		}
		*self = *NewConstr(general.Constructor, general.Fields...)

	default:
		return fmt.Errorf("%w: unexpected tag %d", ErrInvalidCbor, tag.Number)
	}
	return
}

// Plutus maps may have keys that aren't hashable in Go, so entries are read one by one
func unmarshalMap(data []byte) (entries []MapEntry, err error) {
	info := data[0] & 0x1f
	body := data[1:]

	indefinite := info == 31
	var n uint64
	switch {
	case indefinite:
	case info < 24:
		n = uint64(info)
	case info == 24 && len(body) >= 1:
		n, body = uint64(body[0]), body[1:]
	case info == 25 && len(body) >= 2:
		n, body = uint64(binary.BigEndian.Uint16(body)), body[2:]
	case info == 26 && len(body) >= 4:
		n, body = uint64(binary.BigEndian.Uint32(body)), body[4:]
	case info == 27 && len(body) >= 8:
		n, body = binary.BigEndian.Uint64(body), body[8:]
	default:
		return nil, fmt.Errorf("%w: bad map header", ErrInvalidCbor)
	}

	for i := uint64(0); indefinite || i < n; i++ {
		if indefinite && len(body) > 0 && body[0] == 0xff {
			break
		}

		key, value := new(PlutusData), new(PlutusData)
		body, err = cbor.UnmarshalFirst(body, key)
		if err != nil {
			return
		}
		body, err = cbor.UnmarshalFirst(body, value)
		if err != nil {
			return
		}
		entries = append(entries, MapEntry{Key: key, Value: value})
	}
	return
}

func (self *PlutusData) MarshalCBOR() ([]byte, error) {
	switch self.Kind {
	case KindInt:
		if self.Int == nil {
			return cbor.Marshal(0)
		}
		return cbor.Marshal(self.Int)

	case KindBytes:
		if self.Bytes == nil {
			return cbor.Marshal([]byte{})
		}
		return cbor.Marshal(self.Bytes)

	case KindList:
		return cbor.Marshal(nonNil(self.Fields))

	case KindMap:
		buf := new(bytes.Buffer)
		buf.Write(head(majorMap, uint64(len(self.Map))))
		for _, entry := range self.Map {
			for _, v := range []*PlutusData{entry.Key, entry.Value} {
				b, err := cbor.Marshal(v)
				if err != nil {
					return nil, err
				}
				buf.Write(b)
			}
		}
		return buf.Bytes(), nil

	case KindConstr:
		fields := nonNil(self.Fields)
		switch {
		case self.Constructor < 7:
			return cbor.Marshal(cbor.Tag{Number: tagConstrSmallStart + self.Constructor, Content: fields})
		case self.Constructor < 128:
			return cbor.Marshal(cbor.Tag{Number: tagConstrLargeStart + self.Constructor - 7, Content: fields})
		default:
			return cbor.Marshal(cbor.Tag{Number: tagConstrGeneral, Content: []any{self.Constructor, fields}})
		}
	}
	return nil, fmt.Errorf("unknown plutus data kind %d", self.Kind)
}

func nonNil(v []*PlutusData) []*PlutusData {
	if v == nil {
		return []*PlutusData{}
	}
	return v
}

// CBOR data item head
func head(major byte, n uint64) []byte {
	m := major << 5
	switch {
	case n < 24:
		return []byte{m | byte(n)}
	case n <= 0xff:
		return []byte{m | 24, byte(n)}
	case n <= 0xffff:
		out := []byte{m | 25, 0, 0}
		binary.BigEndian.PutUint16(out[1:], uint16(n))
		return out
	case n <= 0xffffffff:
		out := []byte{m | 26, 0, 0, 0, 0}
		binary.BigEndian.PutUint32(out[1:], uint32(n))
		return out
	}
	out := make([]byte, 9)
	out[0] = m | 27
	binary.BigEndian.PutUint64(out[1:], n)
	return out
}
