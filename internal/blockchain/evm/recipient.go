package evm

import (
	"fmt"

	"github.com/btcsuite/btcutil/base58"
)

// DecodeSVMAddress converts a base58 SVM (Eclipse / Solana) account address into
// the bytes32 recipient expected by the warp route
func DecodeSVMAddress(address string) ([32]byte, error) {
	var out [32]byte
	if address == "" {
		return out, fmt.Errorf("empty SVM address")
	}

	raw := base58.Decode(address)
	if len(raw) != 32 {
		return out, fmt.Errorf("invalid SVM address %q: decoded to %d bytes", address, len(raw))
	}

	copy(out[:], raw)
	return out, nil
}

// EncodeSVMAddress is the inverse of DecodeSVMAddress
func EncodeSVMAddress(recipient [32]byte) string {
	return base58.Encode(recipient[:])
}
