package wallet

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
)

// Chain is the address family of a wallet address.
type Chain string

const (
	ChainEVM     Chain = "evm"
	ChainSolana  Chain = "solana"
	ChainUnknown Chain = "unknown"
)

// ClassifyAddress reports which chain family an address looks like. It is
// informational only: unknown addresses are still accepted by the scanner.
func ClassifyAddress(address string) Chain {
	address = strings.TrimSpace(address)
	if common.IsHexAddress(address) {
		return ChainEVM
	}
	if _, err := solana.PublicKeyFromBase58(address); err == nil {
		return ChainSolana
	}
	return ChainUnknown
}

// DisplayAddress returns the EIP-55 checksummed form for EVM addresses and the
// input unchanged otherwise.
func DisplayAddress(address string) string {
	if common.IsHexAddress(address) {
		return common.HexToAddress(address).Hex()
	}
	return address
}

// ShortAddress keeps the first 6 and last 4 characters joined by "...".
func ShortAddress(address string) string {
	head := address
	if len(head) > 6 {
		head = head[:6]
	}
	tail := address
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return head + "..." + tail
}
