// Package web3 implements recovery of the signing address from an Ethereum
// personal_sign signature, the primitive behind wallet binding.
package web3

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// PersonalSignHash hashes a message the way wallets do for personal_sign
// (EIP-191: the literal prefix, the byte length, then the message).
func PersonalSignHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// RecoverAddress returns the checksummed address that signed message with
// personal_sign. The signature is the usual 65-byte hex string produced by
// wallets, with V encoded as 27/28.
func RecoverAddress(message, signature string) (string, error) {
	if !strings.HasPrefix(signature, "0x") {
		signature = "0x" + signature
	}

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("malformed signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("invalid signature length: %d", len(sig))
	}

	// Wallets encode the recovery id as 27/28; secp256k1 recovery wants 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pubKey, err := crypto.SigToPub(PersonalSignHash(message), sig)
	if err != nil {
		return "", fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey).Hex(), nil
}

// IsHexAddress reports whether s looks like an Ethereum address.
func IsHexAddress(s string) bool {
	return common.IsHexAddress(s)
}

// AddressesEqual compares two addresses case-insensitively.
func AddressesEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}
