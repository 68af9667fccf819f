package gateway

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCallback() Callback {
	return Callback{
		TransactionID: "te_123456",
		OrderID:       "res_abc",
		Status:        "success",
		Amount:        decimal.RequireFromString("145.00"),
		Currency:      "AZN",
	}
}

func TestSignCallbackDeterministic(t *testing.T) {
	codec := NewCodec("private-key")

	sig1, err := codec.SignCallback(testCallback())
	require.NoError(t, err)
	sig2, err := codec.SignCallback(testCallback())
	require.NoError(t, err)

	assert.NotEmpty(t, sig1)
	assert.Equal(t, sig1, sig2)
}

func TestSignCallbackNormalizesAmount(t *testing.T) {
	codec := NewCodec("private-key")

	cb1 := testCallback()
	cb1.Amount = decimal.RequireFromString("145")
	cb2 := testCallback()
	cb2.Amount = decimal.RequireFromString("145.0000")

	sig1, err := codec.SignCallback(cb1)
	require.NoError(t, err)
	sig2, err := codec.SignCallback(cb2)
	require.NoError(t, err)

	// Both serialize to "145.00" inside the signed payload.
	assert.Equal(t, sig1, sig2)
}

func TestVerifyCallback(t *testing.T) {
	codec := NewCodec("private-key")

	cb := testCallback()
	sig, err := codec.SignCallback(cb)
	require.NoError(t, err)
	cb.Signature = sig

	assert.True(t, codec.VerifyCallback(cb))
}

func TestVerifyCallbackWrongSecret(t *testing.T) {
	signer := NewCodec("their-key")
	verifier := NewCodec("our-key")

	cb := testCallback()
	sig, err := signer.SignCallback(cb)
	require.NoError(t, err)
	cb.Signature = sig

	assert.False(t, verifier.VerifyCallback(cb))
}

func TestVerifyCallbackTamperedFields(t *testing.T) {
	codec := NewCodec("private-key")

	cb := testCallback()
	sig, err := codec.SignCallback(cb)
	require.NoError(t, err)
	cb.Signature = sig

	tampered := cb
	tampered.Amount = decimal.RequireFromString("1.00")
	assert.False(t, codec.VerifyCallback(tampered))

	tampered = cb
	tampered.Status = "failed"
	assert.False(t, codec.VerifyCallback(tampered))

	tampered = cb
	tampered.OrderID = "res_other"
	assert.False(t, codec.VerifyCallback(tampered))
}

func TestVerifyCallbackMessageNotSigned(t *testing.T) {
	codec := NewCodec("private-key")

	cb := testCallback()
	sig, err := codec.SignCallback(cb)
	require.NoError(t, err)
	cb.Signature = sig

	// The free-text message is outside the signed payload.
	cb.Message = "operator note"
	assert.True(t, codec.VerifyCallback(cb))
}

func TestVerifyCallbackEmptySignature(t *testing.T) {
	codec := NewCodec("private-key")
	assert.False(t, codec.VerifyCallback(testCallback()))
}
