package wallet

import (
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	siwe "github.com/spruceid/siwe-go"
)

// VerifySIWE parses a Sign-In with Ethereum message, checks the EIP-191
// signature and returns the recovered signer address. The caller compares it
// against the address the login flow claimed.
func VerifySIWE(message, signature string) (string, error) {
	parsed, err := siwe.ParseMessage(message)
	if err != nil {
		return "", fmt.Errorf("parse siwe message: %w", err)
	}

	publicKey, err := parsed.VerifyEIP191(signature)
	if err != nil {
		return "", fmt.Errorf("verify signature: %w", err)
	}

	recovered := crypto.PubkeyToAddress(*publicKey)
	if recovered != parsed.GetAddress() {
		return "", fmt.Errorf("signer %s does not match message address %s", recovered.Hex(), parsed.GetAddress().Hex())
	}

	return recovered.Hex(), nil
}
