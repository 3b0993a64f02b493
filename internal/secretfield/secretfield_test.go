package secretfield

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec(t *testing.T) *Codec {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	codec, err := NewCodec(key)
	require.NoError(t, err)
	return codec
}

func TestSealOpenRoundTrip(t *testing.T) {
	codec := testCodec(t)

	sealed, err := codec.Seal("alice@example.com")
	require.NoError(t, err)
	assert.True(t, IsEnvelope(sealed))

	plain, err := codec.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", plain)
}

func TestOpenPassesThroughPlainValues(t *testing.T) {
	codec := testCodec(t)

	plain, err := codec.Open("not encrypted")
	require.NoError(t, err)
	assert.Equal(t, "not encrypted", plain)
}

func TestOpenRejectsTamperedEnvelope(t *testing.T) {
	codec := testCodec(t)

	sealed, err := codec.Seal("secret")
	require.NoError(t, err)

	_, err = codec.Open(sealed[:len(sealed)-4] + "AAAA")
	assert.Error(t, err)
}

func TestNewCodecRejectsBadKey(t *testing.T) {
	_, err := NewCodec("too short")
	assert.Error(t, err)

	_, err = NewCodec(base64.StdEncoding.EncodeToString(make([]byte, 16)))
	assert.Error(t, err)
}
