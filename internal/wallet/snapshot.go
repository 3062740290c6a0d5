package wallet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SnapshotFile models a YAML description of the injected wallets, e.g.
//
//	solana:
//	  is_backpack: true
//	  public_key: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
//	ethereum:
//	  is_metamask: true
//	  accounts: ["0xABCDEF1234567890"]
type SnapshotFile struct {
	Backpack *struct {
		Ethereum *StaticEVM `yaml:"ethereum"`
	} `yaml:"backpack"`
	Solana *struct {
		IsBackpack   bool `yaml:"is_backpack"`
		StaticSolana `yaml:",inline"`
	} `yaml:"solana"`
	Ethereum *struct {
		IsMetaMask bool `yaml:"is_metamask"`
		StaticEVM  `yaml:",inline"`
	} `yaml:"ethereum"`
	OKX *struct {
		Ethereum *StaticEVM `yaml:"ethereum"`
	} `yaml:"okxwallet"`
}

// StaticEVM is an EVM provider answering with a fixed account list, or with
// Error when the user is simulated to reject the request.
type StaticEVM struct {
	Accounts []string `yaml:"accounts"`
	Error    string   `yaml:"error"`
}

// Request implements EVMProvider.
func (p *StaticEVM) Request(ctx context.Context, method string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Error != "" {
		return nil, errors.New(p.Error)
	}
	if method != MethodRequestAccounts {
		return nil, fmt.Errorf("unsupported method %s", method)
	}
	return append([]string(nil), p.Accounts...), nil
}

// StaticSolana is a Solana provider answering connect with fixed values.
type StaticSolana struct {
	PublicKey string `yaml:"public_key"`
	Address   string `yaml:"address"`
	Error     string `yaml:"error"`
}

// Connect implements SolanaProvider.
func (p *StaticSolana) Connect(ctx context.Context) (ConnectResponse, error) {
	if err := ctx.Err(); err != nil {
		return ConnectResponse{}, err
	}
	if p.Error != "" {
		return ConnectResponse{}, errors.New(p.Error)
	}
	return ConnectResponse{PublicKey: p.PublicKey, Address: p.Address}, nil
}

// ParseSnapshot decodes a YAML wallet description.
func ParseSnapshot(content []byte) (EnvironmentSnapshot, error) {
	var file SnapshotFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return EnvironmentSnapshot{}, fmt.Errorf("parse wallet snapshot: %w", err)
	}
	return file.Snapshot(), nil
}

// LoadSnapshot reads a YAML wallet description from disk. An empty path
// yields an empty environment.
func LoadSnapshot(path string) (EnvironmentSnapshot, error) {
	if strings.TrimSpace(path) == "" {
		return EnvironmentSnapshot{}, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return EnvironmentSnapshot{}, fmt.Errorf("read wallet snapshot: %w", err)
	}
	return ParseSnapshot(content)
}

// Snapshot converts the file model into an EnvironmentSnapshot.
func (f SnapshotFile) Snapshot() EnvironmentSnapshot {
	var env EnvironmentSnapshot
	if f.Backpack != nil {
		env.Backpack = &BackpackObject{}
		if f.Backpack.Ethereum != nil {
			env.Backpack.Ethereum = f.Backpack.Ethereum
		}
	}
	if f.Solana != nil {
		provider := f.Solana.StaticSolana
		env.Solana = &SolanaObject{IsBackpack: f.Solana.IsBackpack, Provider: &provider}
	}
	if f.Ethereum != nil {
		provider := f.Ethereum.StaticEVM
		env.Ethereum = &EthereumObject{IsMetaMask: f.Ethereum.IsMetaMask, Provider: &provider}
	}
	if f.OKX != nil {
		env.OKX = &OKXObject{}
		if f.OKX.Ethereum != nil {
			env.OKX.Ethereum = f.OKX.Ethereum
		}
	}
	return env
}
