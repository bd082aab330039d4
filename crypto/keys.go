// Copyright (C) 2019-2021 Algorand, Inc.
// This file is part of go-muse
//
// go-muse is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// go-muse is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with go-muse.  If not, see <https://www.gnu.org/licenses/>.

package crypto

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/hdevalence/ed25519consensus"
)

// Seed holds the entropy needed to generate cryptographic keys.
type Seed [32]byte

// PublicKey is an ed25519 public key. The zero key never verifies.
type PublicKey [ed25519.PublicKeySize]byte

// Signature is an ed25519 signature.
type Signature [ed25519.SignatureSize]byte

// BlankSignature is an empty signature structure, containing nothing but zeroes
var BlankSignature = Signature{}

// String returns the public key in hex.
func (pk PublicKey) String() string {
	return hex.EncodeToString(pk[:])
}

// IsZero reports whether the key is unset.
func (pk PublicKey) IsZero() bool {
	return pk == PublicKey{}
}

// Less orders keys bytewise, used to keep authority key lists sorted.
func (pk PublicKey) Less(o PublicKey) bool {
	for i := range pk {
		if pk[i] != o[i] {
			return pk[i] < o[i]
		}
	}
	return false
}

// PublicKeyFromString parses a hex-encoded public key.
func PublicKeyFromString(s string) (pk PublicKey, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return pk, err
	}
	if len(b) != len(pk) {
		return pk, fmt.Errorf("public key %q has length %d", s, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// SignatureSecrets are used by an entity to produce unforgeable signatures over
// a message.
type SignatureSecrets struct {
	SignatureVerifier PublicKey
	SK                ed25519.PrivateKey
}

// GenerateSignatureSecrets creates SignatureSecrets from a source of entropy.
func GenerateSignatureSecrets(seed Seed) *SignatureSecrets {
	sk := ed25519.NewKeyFromSeed(seed[:])
	var pk PublicKey
	copy(pk[:], sk.Public().(ed25519.PublicKey))
	return &SignatureSecrets{SignatureVerifier: pk, SK: sk}
}

// SecretsFromPassphrase derives deterministic secrets from a passphrase.
// Used for development genesis files and tests.
func SecretsFromPassphrase(phrase string) *SignatureSecrets {
	return GenerateSignatureSecrets(Seed(Hash([]byte(phrase))))
}

// Sign produces a cryptographic Signature of a Hashable message, given
// cryptographic secrets.
func (s *SignatureSecrets) Sign(message Hashable) Signature {
	return s.SignBytes(HashRep(message))
}

// SignBytes signs a message directly, without first hashing.
// Caller is responsible for domain separation.
func (s *SignatureSecrets) SignBytes(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(s.SK, message))
	return sig
}

// Verify verifies that some holder of a cryptographic secret authentically
// signed a Hashable message.
func (pk PublicKey) Verify(message Hashable, sig Signature) bool {
	return pk.VerifyBytes(HashRep(message), sig)
}

// VerifyBytes verifies a signature, where the message is not hashed first.
func (pk PublicKey) VerifyBytes(message []byte, sig Signature) bool {
	if pk.IsZero() {
		return false
	}
	return ed25519consensus.Verify(pk[:], message, sig[:])
}
