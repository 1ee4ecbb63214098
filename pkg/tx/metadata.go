package tx

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Metadatum is one value in a transaction's auxiliary data. The set of
// implementations is closed: Text, Integer, List and Map. Anything else
// entering through Convert is reduced to its string representation.
type Metadatum interface {
	appendTo(buf []byte) []byte
	metadatum()
}

// Text is a UTF-8 string metadatum.
type Text string

// Integer is a signed integer metadatum.
type Integer int64

// List is an ordered sequence of metadata values.
type List []Metadatum

// Pair is one key/value entry of a Map.
type Pair struct {
	Key   Metadatum
	Value Metadatum
}

// Map is a collection of key/value metadata pairs. Encoding orders pairs
// by their encoded key bytes, so logically equal maps encode identically.
type Map []Pair

func (Text) metadatum()    {}
func (Integer) metadatum() {}
func (List) metadatum()    {}
func (Map) metadatum()     {}

// Metadatum encoding tags.
const (
	tagText    = 0x01
	tagInteger = 0x02
	tagList    = 0x03
	tagMap     = 0x04
)

func (t Text) appendTo(buf []byte) []byte {
	buf = append(buf, tagText)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(t)))
	return append(buf, t...)
}

func (i Integer) appendTo(buf []byte) []byte {
	buf = append(buf, tagInteger)
	return binary.LittleEndian.AppendUint64(buf, uint64(i))
}

func (l List) appendTo(buf []byte) []byte {
	buf = append(buf, tagList)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(l)))
	for _, item := range l {
		buf = item.appendTo(buf)
	}
	return buf
}

func (m Map) appendTo(buf []byte) []byte {
	// Canonical order: sort by encoded key bytes.
	sorted := make([]Pair, len(m))
	copy(sorted, m)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Key.appendTo(nil), sorted[j].Key.appendTo(nil)) < 0
	})

	buf = append(buf, tagMap)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(sorted)))
	for _, p := range sorted {
		buf = p.Key.appendTo(buf)
		buf = p.Value.appendTo(buf)
	}
	return buf
}

// Metadata is the auxiliary data attached to a transaction: a mapping of
// numeric labels to metadata values. It does not affect value transfer.
type Metadata map[uint64]Metadatum

// TransferLabel is the label the engine files request metadata under.
const TransferLabel uint64 = 674

// Bytes returns the canonical encoding of the auxiliary data, with labels
// in ascending order.
func (m Metadata) Bytes() []byte {
	labels := make([]uint64, 0, len(m))
	for l := range m {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })

	var buf []byte
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(labels)))
	for _, l := range labels {
		buf = binary.LittleEndian.AppendUint64(buf, l)
		buf = m[l].appendTo(buf)
	}
	return buf
}

// Convert turns an arbitrary nested value (as produced by json.Unmarshal
// or built by a caller) into a Metadatum. Strings, integers, lists and
// string-keyed maps map onto the union; every other leaf is converted to
// its string representation rather than rejected.
func Convert(v interface{}) Metadatum {
	switch val := v.(type) {
	case nil:
		return Text("")
	case Metadatum:
		return val
	case string:
		return Text(val)
	case int:
		return Integer(val)
	case int8:
		return Integer(val)
	case int16:
		return Integer(val)
	case int32:
		return Integer(val)
	case int64:
		return Integer(val)
	case uint:
		if uint64(val) > math.MaxInt64 {
			return Text(fmt.Sprint(val))
		}
		return Integer(val)
	case uint8:
		return Integer(val)
	case uint16:
		return Integer(val)
	case uint32:
		return Integer(val)
	case uint64:
		if val > math.MaxInt64 {
			return Text(fmt.Sprint(val))
		}
		return Integer(val)
	case float64:
		// JSON numbers decode as float64; keep exact integers integral.
		if val == math.Trunc(val) && math.Abs(val) < math.MaxInt64 {
			return Integer(int64(val))
		}
		return Text(fmt.Sprint(val))
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Integer(i)
		}
		return Text(val.String())
	case []interface{}:
		list := make(List, 0, len(val))
		for _, item := range val {
			list = append(list, Convert(item))
		}
		return list
	case map[string]interface{}:
		// Iterate keys in sorted order so repeated conversions build the
		// same Map in the same order.
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := make(Map, 0, len(val))
		for _, k := range keys {
			m = append(m, Pair{Key: Text(k), Value: Convert(val[k])})
		}
		return m
	default:
		return Text(fmt.Sprint(val))
	}
}

// ConvertRequestMetadata wraps a request's metadata value under the
// transfer label. A nil value yields no auxiliary data.
func ConvertRequestMetadata(v interface{}) *Metadata {
	if v == nil {
		return nil
	}
	m := Metadata{TransferLabel: Convert(v)}
	return &m
}
