package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const knownSignature = "44422d618d76e6e81c5f002f4d5108385750b52eb8db4e9c7a4231ddfac02840"

func TestSigner_KnownVector(t *testing.T) {
	s := NewSigner("s3cret")
	assert.Equal(t, knownSignature, s.Sign("order_1", "pay_1"))
	assert.True(t, s.Verify("order_1", "pay_1", knownSignature))
}

func TestSigner_SingleCharacterMutationFails(t *testing.T) {
	s := NewSigner("s3cret")

	for i := range knownSignature {
		mutated := []byte(knownSignature)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		assert.False(t, s.Verify("order_1", "pay_1", string(mutated)), "mutation at %d accepted", i)
	}
}

func TestSigner_RejectsWrongInputs(t *testing.T) {
	s := NewSigner("s3cret")

	assert.False(t, s.Verify("order_1", "pay_2", knownSignature))
	assert.False(t, s.Verify("order_2", "pay_1", knownSignature))
	assert.False(t, NewSigner("other").Verify("order_1", "pay_1", knownSignature))
	assert.False(t, s.Verify("order_1", "pay_1", ""))
	assert.False(t, s.Verify("order_1", "pay_1", knownSignature[:63]))
}
