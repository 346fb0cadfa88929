package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amzilayoub/nft-marketplace/internal/domain"
)

func TestParseAmount(t *testing.T) {
	v, err := parseAmount("150")
	require.NoError(t, err)
	require.Equal(t, "150", v.String())

	v, err = parseAmount("0.5ETH")
	require.NoError(t, err)
	require.Equal(t, "500000000000000000", v.String())

	_, err = parseAmount("-1")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestAssetArgs(t *testing.T) {
	c, id, err := assetArgs([]string{"0x00000000000000000000000000000000000000c1", "7"}, 2)
	require.NoError(t, err)
	require.Equal(t, "0x00000000000000000000000000000000000000C1", c.Hex())
	require.Equal(t, int64(7), id.Int64())

	_, _, err = assetArgs([]string{"0xc1"}, 2)
	require.Error(t, err)
	_, _, err = assetArgs([]string{"nope", "7"}, 2)
	require.Error(t, err)
	_, _, err = assetArgs([]string{"0x00000000000000000000000000000000000000c1", "-7"}, 2)
	require.Error(t, err)
}

func TestParseTxHash(t *testing.T) {
	ref, ok := parseTxHash("0x" + strings.Repeat("ab", 32))
	require.True(t, ok)
	require.Equal(t, byte(0xab), ref[31])

	_, ok = parseTxHash("150")
	require.False(t, ok)
	_, ok = parseTxHash("0xabcd")
	require.False(t, ok)
}
