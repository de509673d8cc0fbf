package save

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	ram := make([]byte, 8*1024)
	for i := range ram {
		ram[i] = byte(i * 7)
	}
	enc, err := Encode(ram)
	require.NoError(t, err)
	require.Equal(t, byte(0xFF), enc[0])
	require.Equal(t, []byte("EGB"), enc[1:4])

	dec, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, ram, dec)
}

func TestDecode_BadMagic(t *testing.T) {
	_, err := Decode([]byte{0x00, 0x00, 0x00, 0x00})
	require.Error(t, err)
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(nil)
	require.Error(t, err)
}
