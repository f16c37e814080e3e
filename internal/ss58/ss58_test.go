package ss58

import (
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

const alicePub = "d43593c715fdd31c61141abd04a99fd6822c8558854ccde39a5684e7a56da27d"

func TestEncodeGenericPrefix(t *testing.T) {
	pub, err := hex.DecodeString(alicePub)
	require.NoError(t, err)

	addr, err := Encode(pub, 42)
	require.NoError(t, err)
	require.Equal(t, "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", addr)
}

func TestRoundTrip(t *testing.T) {
	pub, err := hex.DecodeString(alicePub)
	require.NoError(t, err)

	for _, prefix := range []uint16{0, 2, 42, 63, 64, DefaultPrefix, 255, 16383} {
		addr, err := Encode(pub, prefix)
		require.NoError(t, err)

		gotPub, gotPrefix, err := Decode(addr)
		require.NoError(t, err, "prefix %d", prefix)
		require.Equal(t, prefix, gotPrefix)
		require.Equal(t, pub, gotPub)
	}
}

func TestReencode(t *testing.T) {
	addr, err := Reencode("5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY", DefaultPrefix)
	require.NoError(t, err)
	_, prefix, err := Decode(addr)
	require.NoError(t, err)
	require.Equal(t, DefaultPrefix, prefix)
}

func TestDecodeRejects(t *testing.T) {
	_, _, err := Decode("5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQZ")
	require.Error(t, err)

	_, _, err = Decode("0OIl")
	require.True(t, errors.Is(err, ErrInvalidAddress))

	_, err = Encode([]byte{1, 2, 3}, 42)
	require.True(t, errors.Is(err, ErrInvalidAddress))
}
