// Copyright (c) 2025 The Shell developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package coinbase

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBIP34HeightEncodingBoundaries(t *testing.T) {
	cases := []struct {
		height int64
		want   string
	}{
		{0, "50"},
		{16, "60"},
		{17, "0111"},
		{127, "017f"},
		{128, "028000"},
		{32767, "02ff7f"},
		{32768, "03008000"}, // 03 + LE32(32768)[:3] = 03 00 80 00
	}

	for _, c := range cases {
		got := hex.EncodeToString(BIP34Height(c.height))
		require.Equal(t, c.want, got, "height %d", c.height)
	}
}

func TestSplitCoinbaseAssemblesToValidLengths(t *testing.T) {
	coinb1, coinb2, err := Split(100, 4, 4, 5_000_000_000, "miner-address", "/pool/")
	require.NoError(t, err)

	b1, err := hex.DecodeString(coinb1)
	require.NoError(t, err)
	b2, err := hex.DecodeString(coinb2)
	require.NoError(t, err)

	// version(4) + input count(1) + null prevout(36) + varint(1) + script
	heightPush := BIP34Height(100)
	scriptLen := len(heightPush) + len("/pool/") + 4 + 4
	require.Equal(t, 4+1+36+1+len(heightPush)+len("/pool/"), len(b1))
	require.Equal(t, scriptLen, int(b1[41])+0) // varint byte at offset 41

	// sequence(4) + output count(1) + value(8) + varint(1) + script(25) + locktime(4)
	require.Equal(t, 4+1+8+1+25+4, len(b2))
}

func TestSplitRejectsOversizeScript(t *testing.T) {
	require.Panics(t, func() {
		big := make([]byte, 300)
		_, _, _ = Split(100, 4, 4, 1, "x", string(big))
	})
}
