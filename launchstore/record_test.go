package launchstore

import (
	"math"
	"math/rand"
	"testing"

	"github.com/alecthomas/assert"
)

func TestHashString(t *testing.T) {
	tests := []struct {
		s   string
		exp uint32
	}{
		{"", 0x00001505},
		{"a", 0x0002b606},
		{"b", 0x0002b607},
		{"firefox", 0xaca988b8},
		{"gedit", 0x0f7ff5b2},
		{"xterm", 0x10bbd555},
	}
	for _, test := range tests {
		got := HashString(test.s)
		assert.Equal(t, test.exp, got, "HashString(%q) = %08x", test.s, got)
	}
}

func TestHashStringSignedChars(t *testing.T) {
	// bytes >= 0x80 are added as negative numbers, like signed char in C
	got := HashString("\xff")
	exp := uint32(5381*33) - 1
	assert.Equal(t, exp, got)
}

func TestEncodeRecordLayout(t *testing.T) {
	b := make([]byte, RecordSize)
	EncodeRecord(b, Record{Hash: 0xaca988b8, LastLaunched: 2000, Launches: 2})
	assert.Equal(t, 28, RecordSize)
	assert.Equal(t, "aca988b8\n000007d0\n00000002\n\n", string(b))
}

func testRoundTrip(t *testing.T, r Record) {
	b := AppendRecord(nil, r)
	assert.Equal(t, RecordSize, len(b))
	got, err := DecodeRecord(b)
	assert.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestRecordRoundTrip(t *testing.T) {
	// 0 is a valid value for every field
	edges := []uint32{0, 1, 0xf, 0x10, 0x7fffffff, 0x80000000, math.MaxUint32}
	for _, v := range edges {
		testRoundTrip(t, Record{Hash: v, LastLaunched: v, Launches: v})
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		testRoundTrip(t, Record{Hash: rng.Uint32(), LastLaunched: rng.Uint32(), Launches: rng.Uint32()})
	}
}

func TestDecodeFieldsSkipsNil(t *testing.T) {
	b := AppendRecord(nil, Record{Hash: 5, LastLaunched: 6, Launches: 7})
	// a bad timestamp doesn't matter when we don't ask for it
	copy(b[lastOff:], "zzzzzzzz")
	var hash, launches uint32
	err := decodeFields(b, &hash, nil, &launches)
	assert.NoError(t, err)
	assert.Equal(t, uint32(5), hash)
	assert.Equal(t, uint32(7), launches)

	_, err = DecodeRecord(b)
	assert.Error(t, err)
}

func TestDecodeInvalid(t *testing.T) {
	_, err := DecodeRecord([]byte("0000"))
	assert.Error(t, err)

	b := AppendRecord(nil, Record{})
	b[3] = 'g'
	_, err = DecodeRecord(b)
	assert.Error(t, err)

	// upper case is accepted when reading
	b = []byte("ACA988B8\n000007D0\n00000002\n\n")
	r, err := DecodeRecord(b)
	assert.NoError(t, err)
	assert.Equal(t, Record{Hash: 0xaca988b8, LastLaunched: 2000, Launches: 2}, r)
}

func TestEncodeUpdate(t *testing.T) {
	b := AppendRecord(nil, Record{Hash: 10, LastLaunched: 100, Launches: 3})

	// only timestamp
	err := encodeUpdate(b, Update{LastLaunched: 200, SetLastLaunched: true})
	assert.NoError(t, err)
	r, _ := DecodeRecord(b)
	assert.Equal(t, Record{Hash: 10, LastLaunched: 200, Launches: 4}, r)

	// nothing but the counter
	err = encodeUpdate(b, Update{})
	assert.NoError(t, err)
	r, _ = DecodeRecord(b)
	assert.Equal(t, Record{Hash: 10, LastLaunched: 200, Launches: 5}, r)

	// zero is written when asked for
	err = encodeUpdate(b, Update{Hash: 0, SetHash: true, LastLaunched: 0, SetLastLaunched: true})
	assert.NoError(t, err)
	r, _ = DecodeRecord(b)
	assert.Equal(t, Record{Hash: 0, LastLaunched: 0, Launches: 6}, r)
}

func TestEncodeUpdateSaturates(t *testing.T) {
	b := AppendRecord(nil, Record{Hash: 1, Launches: math.MaxUint32})
	err := encodeUpdate(b, Update{})
	assert.NoError(t, err)
	r, _ := DecodeRecord(b)
	assert.Equal(t, uint32(math.MaxUint32), r.Launches)
}

func TestNewRecordBytes(t *testing.T) {
	b := newRecordBytes(0xaca988b8, 1000)
	r, err := DecodeRecord(b)
	assert.NoError(t, err)
	assert.Equal(t, Record{Hash: 0xaca988b8, LastLaunched: 1000, Launches: 1}, r)
}

func TestCompareHashMatchesNumericOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		a, b := rng.Uint32(), rng.Uint32()
		if i%10 == 0 {
			b = a
		}
		ea := AppendRecord(nil, Record{Hash: a, LastLaunched: rng.Uint32()})
		eb := AppendRecord(nil, Record{Hash: b, Launches: rng.Uint32()})
		got := CompareHash(ea, eb)
		switch {
		case a < b:
			assert.True(t, got < 0, "%08x < %08x", a, b)
		case a > b:
			assert.True(t, got > 0, "%08x > %08x", a, b)
		default:
			assert.Equal(t, 0, got)
		}
		assert.Equal(t, got, CompareHash(hashKey(a), eb))
	}
}
