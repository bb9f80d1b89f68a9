package gateway

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// ValidateAddress checks that a destination address is plausible for the
// given network before a withdrawal or send is attempted. Networks not
// listed here only get a non-empty check; final validation is the chain
// gateway's job.
func ValidateAddress(network, address string) error {
	if address == "" {
		return fmt.Errorf("address is empty")
	}

	switch strings.ToLower(network) {
	case "sol", "solana":
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return fmt.Errorf("invalid solana address: %w", err)
		}
	case "eth", "erc20", "evm":
		if !isHexAddress(address) {
			return fmt.Errorf("invalid evm address")
		}
	case "trx", "tron", "trc20":
		if err := validateTronAddress(address); err != nil {
			return err
		}
	}

	return nil
}

func isHexAddress(address string) bool {
	if len(address) != 42 || !strings.HasPrefix(address, "0x") {
		return false
	}
	for _, c := range address[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func validateTronAddress(address string) error {
	if len(address) != 34 || address[0] != 'T' {
		return fmt.Errorf("invalid tron address")
	}
	decoded, err := base58.Decode(address)
	if err != nil || len(decoded) != 25 {
		return fmt.Errorf("invalid tron address")
	}
	return nil
}
