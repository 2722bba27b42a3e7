package launchstore

import (
	"bytes"
	"fmt"
	"math"
	"time"
)

// on-disk layout of a record:
//
//	hhhhhhhh\n  hash of executable name
//	tttttttt\n  last launch, unix seconds
//	nnnnnnnn\n  number of launches
//	\n          record terminator
//
// all numbers are zero-padded lower-case hex so a record has a fixed
// size and records compare by hash with bytes.Compare
const (
	fieldDigits = 8

	hashOff     = 0
	lastOff     = hashOff + fieldDigits + 1
	launchesOff = lastOff + fieldDigits + 1

	// RecordSize is the size in bytes of a single record on disk
	RecordSize = launchesOff + fieldDigits + 1 + 1
)

const hexDigits = "0123456789abcdef"

// Record is a decoded launch history entry
type Record struct {
	Hash uint32
	// unix time in seconds
	LastLaunched uint32
	Launches     uint32
}

// Time returns LastLaunched as time.Time
func (r Record) Time() time.Time {
	return time.Unix(int64(r.LastLaunched), 0)
}

func (r Record) String() string {
	return fmt.Sprintf("%08x last: %d launches: %d", r.Hash, r.LastLaunched, r.Launches)
}

// HashString returns the key under which executable is stored.
// It's djb2 over bytes as signed chars, same as GLib's g_str_hash(),
// so that existing databases stay readable.
// Different names can hash to the same value and will share a record.
func HashString(s string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(s); i++ {
		h = h*33 + uint32(int32(int8(s[i])))
	}
	return h
}

func putHex(b []byte, v uint32) {
	for i := fieldDigits - 1; i >= 0; i-- {
		b[i] = hexDigits[v&0xf]
		v >>= 4
	}
}

func parseHex(b []byte) (uint32, error) {
	var v uint32
	for _, c := range b[:fieldDigits] {
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, fmt.Errorf("invalid hex digit %q in %q", c, b[:fieldDigits])
		}
		v = v<<4 | uint32(d)
	}
	return v, nil
}

// EncodeRecord writes r into b which must be at least RecordSize long
func EncodeRecord(b []byte, r Record) {
	b = b[:RecordSize]
	putHex(b[hashOff:], r.Hash)
	b[hashOff+fieldDigits] = '\n'
	putHex(b[lastOff:], r.LastLaunched)
	b[lastOff+fieldDigits] = '\n'
	putHex(b[launchesOff:], r.Launches)
	b[launchesOff+fieldDigits] = '\n'
	b[RecordSize-1] = '\n'
}

// AppendRecord appends encoded r to b
func AppendRecord(b []byte, r Record) []byte {
	n := len(b)
	b = append(b, make([]byte, RecordSize)...)
	EncodeRecord(b[n:], r)
	return b
}

// decodeFields parses the fields of an encoded record.
// A nil destination skips parsing of that field.
func decodeFields(b []byte, hash *uint32, lastLaunched *uint32, launches *uint32) error {
	if len(b) < RecordSize {
		return fmt.Errorf("record too short: %d bytes, expected %d", len(b), RecordSize)
	}
	var err error
	if hash != nil {
		if *hash, err = parseHex(b[hashOff:]); err != nil {
			return fmt.Errorf("hash: %w", err)
		}
	}
	if lastLaunched != nil {
		if *lastLaunched, err = parseHex(b[lastOff:]); err != nil {
			return fmt.Errorf("last launched: %w", err)
		}
	}
	if launches != nil {
		if *launches, err = parseHex(b[launchesOff:]); err != nil {
			return fmt.Errorf("launches: %w", err)
		}
	}
	return nil
}

// DecodeRecord parses an encoded record
func DecodeRecord(b []byte) (Record, error) {
	var r Record
	err := decodeFields(b, &r.Hash, &r.LastLaunched, &r.Launches)
	return r, err
}

// Update describes a change to a record. Hash and LastLaunched are only
// written when the matching Set flag is true, so 0 is a valid value
// for both. Launches is always incremented.
type Update struct {
	Hash            uint32
	SetHash         bool
	LastLaunched    uint32
	SetLastLaunched bool
}

// encodeUpdate applies u to the encoded record in b in place.
// The launch counter is read back and incremented, saturating at max uint32.
func encodeUpdate(b []byte, u Update) error {
	var launches uint32
	if err := decodeFields(b, nil, nil, &launches); err != nil {
		return err
	}
	if u.SetHash {
		putHex(b[hashOff:], u.Hash)
	}
	if u.SetLastLaunched {
		putHex(b[lastOff:], u.LastLaunched)
	}
	if launches < math.MaxUint32 {
		launches++
	}
	putHex(b[launchesOff:], launches)
	return nil
}

// newRecordBytes returns an encoded record for a first launch
func newRecordBytes(hash uint32, lastLaunched uint32) []byte {
	b := make([]byte, RecordSize)
	EncodeRecord(b, Record{})
	// can't fail, b is a valid record
	_ = encodeUpdate(b, Update{
		Hash:            hash,
		SetHash:         true,
		LastLaunched:    lastLaunched,
		SetLastLaunched: true,
	})
	return b
}

// CompareHash orders encoded records by hash
func CompareHash(a, b []byte) int {
	return bytes.Compare(a[hashOff:hashOff+fieldDigits], b[hashOff:hashOff+fieldDigits])
}

// hashKey returns hash encoded the way it's stored in a record
func hashKey(hash uint32) []byte {
	b := make([]byte, fieldDigits)
	putHex(b, hash)
	return b
}
