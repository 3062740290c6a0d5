package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Kind identifies which injected wallet won provider detection.
type Kind string

const (
	KindBackpack Kind = "backpack"
	KindMetaMask Kind = "metamask"
	KindOKX      Kind = "okx"
	KindEthereum Kind = "ethereum"
)

// MethodRequestAccounts is the EIP-1102 account access request.
const MethodRequestAccounts = "eth_requestAccounts"

// ErrNoAccount is returned when a provider connects without yielding an address.
var ErrNoAccount = errors.New("wallet returned no account")

// ConnectResponse is what a Solana-style provider returns from connect. The
// public key string form is preferred over the direct string form.
type ConnectResponse struct {
	PublicKey string
	Address   string
}

// SolanaProvider is a Solana-style injected object exposing connect().
type SolanaProvider interface {
	Connect(ctx context.Context) (ConnectResponse, error)
}

// EVMProvider is an EIP-1193 style injected object exposing request().
type EVMProvider interface {
	Request(ctx context.Context, method string) ([]string, error)
}

// BackpackObject models window.backpack.
type BackpackObject struct {
	Ethereum EVMProvider
}

// SolanaObject models window.solana.
type SolanaObject struct {
	IsBackpack bool
	Provider   SolanaProvider
}

// EthereumObject models window.ethereum.
type EthereumObject struct {
	IsMetaMask bool
	Provider   EVMProvider
}

// OKXObject models window.okxwallet.
type OKXObject struct {
	Ethereum EVMProvider
}

// EnvironmentSnapshot captures the injected wallet objects visible to the
// page at the time of a connect attempt. Nil fields are absent objects.
type EnvironmentSnapshot struct {
	Backpack *BackpackObject
	Solana   *SolanaObject
	Ethereum *EthereumObject
	OKX      *OKXObject
}

// ProviderHandle is the resolved provider for a single connect attempt.
// Exactly one of Solana and EVM is set.
type ProviderHandle struct {
	Kind   Kind
	Solana SolanaProvider
	EVM    EVMProvider
}

// Connect asks the provider for account access and returns the wallet address.
func (h *ProviderHandle) Connect(ctx context.Context) (string, error) {
	if h == nil {
		return "", errors.New("no provider resolved")
	}

	if h.Kind == KindBackpack && h.Solana != nil {
		resp, err := h.Solana.Connect(ctx)
		if err != nil {
			return "", err
		}
		address := strings.TrimSpace(resp.PublicKey)
		if address == "" {
			address = strings.TrimSpace(resp.Address)
		}
		if address == "" {
			return "", ErrNoAccount
		}
		return address, nil
	}

	if h.EVM == nil {
		return "", fmt.Errorf("%s provider has no request capability", h.Kind)
	}
	accounts, err := h.EVM.Request(ctx, MethodRequestAccounts)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 || strings.TrimSpace(accounts[0]) == "" {
		return "", ErrNoAccount
	}
	return strings.TrimSpace(accounts[0]), nil
}
