package crypto_test

import (
	"crypto/rsa"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ciphergroup/internal/crypto"
	"ciphergroup/internal/domain"
)

// testBits keeps key generation fast; the protocol itself is size agnostic.
const testBits = 2048

func makeKeyPair(t *testing.T) (domain.KeyPair, *rsa.PrivateKey) {
	t.Helper()
	kp, err := crypto.GenerateKeyPairSize(testBits)
	require.NoError(t, err)
	priv, err := crypto.ParsePrivateKey(kp.PrivateKey)
	require.NoError(t, err)
	return kp, priv
}

func TestSymmetric_RoundTrip(t *testing.T) {
	k, err := crypto.NewSymmetricKey()
	require.NoError(t, err)

	for _, plain := range []string{"", "hi", "árvíztűrő tükörfúrógép", strings.Repeat("x", 4097)} {
		ct := crypto.SymEncrypt(k, []byte(plain))
		got, err := crypto.SymDecrypt(k, ct)
		require.NoError(t, err)
		assert.Equal(t, plain, string(got))
	}
}

func TestSymmetric_CounterBlockLayout(t *testing.T) {
	k, err := crypto.NewSymmetricKey()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, k.IV[crypto.NonceBytes:])

	other, err := crypto.NewSymmetricKey()
	require.NoError(t, err)
	assert.NotEqual(t, k.Key, other.Key)
	assert.NotEqual(t, k.IV, other.IV)
}

func TestSymmetric_WrongKeyYieldsGarbageNotError(t *testing.T) {
	k, _ := crypto.NewSymmetricKey()
	wrong, _ := crypto.NewSymmetricKey()

	ct := crypto.SymEncrypt(k, []byte("attack at dawn"))
	got, err := crypto.SymDecrypt(wrong, ct)
	require.NoError(t, err)
	assert.NotEqual(t, "attack at dawn", string(got))

	_, err = crypto.SymDecrypt(k, "%%% not base64")
	assert.Error(t, err)
}

func TestWrapUnwrap_RoundTrip(t *testing.T) {
	kp, priv := makeKeyPair(t)
	k, err := crypto.NewSymmetricKey()
	require.NoError(t, err)

	wrapped, err := crypto.WrapKey(kp.PublicKey, k)
	require.NoError(t, err)

	got, err := crypto.UnwrapKey(priv, wrapped)
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestUnwrap_WrongKeyPairFails(t *testing.T) {
	alice, _ := makeKeyPair(t)
	_, bobPriv := makeKeyPair(t)
	k, _ := crypto.NewSymmetricKey()

	wrapped, err := crypto.WrapKey(alice.PublicKey, k)
	require.NoError(t, err)

	_, err = crypto.UnwrapKey(bobPriv, wrapped)
	require.ErrorIs(t, err, domain.ErrDecrypt)

	_, err = crypto.UnwrapKey(bobPriv, "not-base64!")
	require.ErrorIs(t, err, domain.ErrDecrypt)
}

func TestSignVerify(t *testing.T) {
	kp, priv := makeKeyPair(t)
	data := []byte(`{"type":"MESSAGE","data":"hi"}`)

	sig, err := crypto.Sign(priv, data)
	require.NoError(t, err)
	assert.True(t, crypto.Verify(kp.PublicKey, data, sig))

	for i := range data {
		mutated := append([]byte(nil), data...)
		mutated[i] ^= 0x01
		assert.False(t, crypto.Verify(kp.PublicKey, mutated, sig), "mutated byte %d", i)
	}

	rawSig, err := crypto.UnB64(sig)
	require.NoError(t, err)
	for _, i := range []int{0, len(rawSig) / 2, len(rawSig) - 1} {
		mutated := append([]byte(nil), rawSig...)
		mutated[i] ^= 0x80
		assert.False(t, crypto.Verify(kp.PublicKey, data, crypto.B64(mutated)))
	}
}

func TestVerify_MalformedInputIsFalse(t *testing.T) {
	kp, priv := makeKeyPair(t)
	sig, err := crypto.Sign(priv, []byte("x"))
	require.NoError(t, err)

	assert.False(t, crypto.Verify(domain.ParseToken("garbage"), []byte("x"), sig))
	assert.False(t, crypto.Verify(kp.PublicKey, []byte("x"), "@@@"))
	assert.False(t, crypto.Verify(kp.PublicKey, []byte("x"), ""))
}

func TestTokenEquality_IgnoresLineEndings(t *testing.T) {
	kp, _ := makeKeyPair(t)
	lf := kp.PublicKey.PEM()
	crlf := strings.ReplaceAll(lf, "\n", "\r\n")

	a := domain.ParseToken(lf)
	b := domain.ParseToken("  " + crlf + "\n\n")
	assert.True(t, a.Equal(b))
	assert.Equal(t, crypto.Identifier(a), crypto.Identifier(b))

	// The canonical single-line form still parses as a key.
	_, err := crypto.ParsePublicKey(a)
	require.NoError(t, err)
	assert.NotContains(t, a.String(), "\n")
}

func TestIdentifier_IsBase64SHA256(t *testing.T) {
	kp, _ := makeKeyPair(t)
	id := crypto.Identifier(kp.PublicKey)

	raw, err := crypto.UnB64(id)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	other, _ := makeKeyPair(t)
	assert.NotEqual(t, id, crypto.Identifier(other.PublicKey))
}

func TestWipe(t *testing.T) {
	k, _ := crypto.NewSymmetricKey()
	k.Wipe()
	assert.Equal(t, crypto.SymmetricKey{}, k)
}
