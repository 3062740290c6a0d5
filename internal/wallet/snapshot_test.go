package wallet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleSnapshot = `
solana:
  is_backpack: true
  public_key: 9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin
ethereum:
  is_metamask: true
  accounts: ["0xABCDEF1234567890"]
okxwallet:
  ethereum:
    error: "User denied account authorization"
`

func TestParseSnapshot(t *testing.T) {
	env, err := ParseSnapshot([]byte(sampleSnapshot))
	require.NoError(t, err)
	require.Nil(t, env.Backpack)
	require.NotNil(t, env.Solana)
	require.True(t, env.Solana.IsBackpack)
	require.True(t, env.Ethereum.IsMetaMask)
	require.NotNil(t, env.OKX.Ethereum)

	handle := Resolve(env)
	require.Equal(t, KindBackpack, handle.Kind)
	addr, err := handle.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin", addr)

	_, err = env.OKX.Ethereum.Request(context.Background(), MethodRequestAccounts)
	require.EqualError(t, err, "User denied account authorization")
}

func TestLoadSnapshot(t *testing.T) {
	env, err := LoadSnapshot("")
	require.NoError(t, err)
	require.Nil(t, Resolve(env))

	path := filepath.Join(t.TempDir(), "wallets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ethereum:\n  accounts: [\"0x1234567890abcdef\"]\n"), 0o644))

	env, err = LoadSnapshot(path)
	require.NoError(t, err)
	handle := Resolve(env)
	require.Equal(t, KindEthereum, handle.Kind)

	_, err = LoadSnapshot(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = ParseSnapshot([]byte("ethereum: [oops"))
	require.Error(t, err)
}
