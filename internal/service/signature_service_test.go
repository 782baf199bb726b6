package service

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHMACSignatureService_SignAndVerify(t *testing.T) {
	svc := NewHMACSignatureService()
	secret := "whsec_abacate"
	payload := []byte(`{"type":"charge.paid","data":{"id":"pix_char_123","amount":34700}}`)

	signature := svc.Sign(secret, payload)

	assert.Regexp(t, `^[0-9a-f]{64}$`, signature, "signature should be 64-char lowercase hex (SHA-256)")
	assert.True(t, svc.Verify(secret, payload, signature))
}

func TestHMACSignatureService_KnownVector(t *testing.T) {
	svc := NewHMACSignatureService()
	payload := []byte("The quick brown fox jumps over the lazy dog")

	assert.Equal(t,
		"f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
		svc.Sign("key", payload))
}

func TestHMACSignatureService_AcceptsHeaderVariants(t *testing.T) {
	svc := NewHMACSignatureService()
	payload := []byte(`{"type":"charge.expired"}`)
	sig := svc.Sign("s3cret", payload)

	assert.True(t, svc.Verify("s3cret", payload, strings.ToUpper(sig)))
	assert.True(t, svc.Verify("s3cret", payload, "sha256="+sig))
	assert.True(t, svc.Verify("s3cret", payload, " "+sig+" "))
}

func TestHMACSignatureService_SingleBitMutations(t *testing.T) {
	svc := NewHMACSignatureService()
	secret := "bit-flip-secret"
	payload := []byte(`{"type":"charge.paid","data":{"id":"a"}}`)
	sig := svc.Sign(secret, payload)

	for i := range payload {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), payload...)
			mutated[i] ^= 1 << bit
			require.False(t, svc.Verify(secret, mutated, sig), "payload byte %d bit %d", i, bit)
		}
	}

	raw, err := hex.DecodeString(sig)
	require.NoError(t, err)
	for i := range raw {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), raw...)
			mutated[i] ^= 1 << bit
			require.False(t, svc.Verify(secret, payload, hex.EncodeToString(mutated)), "signature byte %d bit %d", i, bit)
		}
	}
}

func TestHMACSignatureService_RejectsMalformedInput(t *testing.T) {
	svc := NewHMACSignatureService()
	payload := []byte("payload")
	sig := svc.Sign("key", payload)

	tests := []struct {
		name   string
		secret string
		sig    string
	}{
		{"wrong secret", "other", sig},
		{"empty secret", "", svc.Sign("", payload)},
		{"empty signature", "key", ""},
		{"not hex", "key", "zz" + sig[2:]},
		{"odd length", "key", sig[1:]},
		{"truncated", "key", sig[:32]},
		{"extended", "key", sig + "00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, svc.Verify(tt.secret, payload, tt.sig))
		})
	}
}

func TestHMACSignatureService_RawBytesNotReserialized(t *testing.T) {
	svc := NewHMACSignatureService()
	compact := []byte(`{"type":"charge.paid","data":{}}`)
	spaced := []byte(`{"type": "charge.paid", "data": {}}`)

	sig := svc.Sign("key", compact)
	assert.False(t, svc.Verify("key", spaced, sig), "equivalent JSON with different bytes must not verify")
}
