package keyprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveContentKeyIsDeterministicPerStream(t *testing.T) {
	p := NewProvider([]byte("top-secret-master-key"))

	k1, err := p.DeriveContentKey("stream-a")
	require.NoError(t, err)
	k2, err := p.DeriveContentKey("stream-a")
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestDeriveContentKeyDiffersAcrossStreams(t *testing.T) {
	p := NewProvider([]byte("top-secret-master-key"))

	a, err := p.DeriveContentKey("stream-a")
	require.NoError(t, err)
	b, err := p.DeriveContentKey("stream-b")
	require.NoError(t, err)
	assert.NotEqual(t, a.Key, b.Key)
}

func TestEncryptDecryptRoundTrips(t *testing.T) {
	p := NewProvider([]byte("top-secret-master-key"))
	key, err := p.DeriveContentKey("stream-a")
	require.NoError(t, err)

	plaintext := []byte("fragmented mp4 segment bytes go here")
	ciphertext, err := Encrypt(plaintext, key)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	roundTrip, err := Encrypt(ciphertext, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, roundTrip)
}
