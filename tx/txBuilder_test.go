package tx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalcCompactU16EncodedSize(t *testing.T) {
	// an empty array is still budgeted at a length byte plus one element
	assert.Equal(t, uint64(2), CalcCompactU16EncodedSize(0, 1))

	// one-byte length prefix up to 0x7f entries
	assert.Equal(t, uint64(2), CalcCompactU16EncodedSize(1, 1))
	assert.Equal(t, uint64(0x7f+1), CalcCompactU16EncodedSize(0x7f, 1))

	// two-byte prefix up to 0x3fff entries
	assert.Equal(t, uint64(0x80+2), CalcCompactU16EncodedSize(0x80, 1))
	assert.Equal(t, uint64(0x3fff+2), CalcCompactU16EncodedSize(0x3fff, 1))

	// three-byte prefix beyond that
	assert.Equal(t, uint64(0x4000+3), CalcCompactU16EncodedSize(0x4000, 1))

	// element size scales the payload, not the prefix
	assert.Equal(t, uint64(10*32+1), CalcCompactU16EncodedSize(10, 32))
}
