package secrets

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestNewBox_KeyLength(t *testing.T) {
	for _, n := range []int{0, 16, 31, 33} {
		_, err := NewBox(bytes.Repeat([]byte{1}, n))
		assert.Error(t, err, "key length %d", n)
	}

	_, err := NewBox(testKey())
	assert.NoError(t, err)
}

func TestBox_RoundTrip(t *testing.T) {
	box, err := NewBox(testKey())
	require.NoError(t, err)

	token, err := box.Seal("pdl-api-key-123")
	require.NoError(t, err)
	assert.NotEqual(t, "pdl-api-key-123", token)

	plaintext, err := box.Open(token)
	require.NoError(t, err)
	assert.Equal(t, "pdl-api-key-123", plaintext)
}

func TestBox_SealEmptyPlaintext(t *testing.T) {
	box, err := NewBox(testKey())
	require.NoError(t, err)

	_, err = box.Seal("")
	assert.Error(t, err)
}

func TestBox_OpenRejectsGarbage(t *testing.T) {
	box, err := NewBox(testKey())
	require.NoError(t, err)

	_, err = box.Open("not base64 !!!")
	assert.Error(t, err)

	_, err = box.Open("c2hvcnQ")
	assert.Error(t, err)
}

func TestBox_OpenRejectsWrongKey(t *testing.T) {
	box1, err := NewBox(testKey())
	require.NoError(t, err)
	box2, err := NewBox(bytes.Repeat([]byte{0x99}, 32))
	require.NoError(t, err)

	token, err := box1.Seal("secret")
	require.NoError(t, err)

	_, err = box2.Open(token)
	assert.Error(t, err)
}
