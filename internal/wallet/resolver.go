package wallet

// Resolve picks one provider from the snapshot. The first match wins:
// Backpack EVM, Backpack-flagged Solana, MetaMask, OKX, any other injected
// Ethereum object. It returns nil when no compatible wallet is installed.
func Resolve(env EnvironmentSnapshot) *ProviderHandle {
	if env.Backpack != nil && env.Backpack.Ethereum != nil {
		return &ProviderHandle{Kind: KindBackpack, EVM: env.Backpack.Ethereum}
	}
	if env.Solana != nil && env.Solana.IsBackpack && env.Solana.Provider != nil {
		return &ProviderHandle{Kind: KindBackpack, Solana: env.Solana.Provider}
	}
	if env.Ethereum != nil && env.Ethereum.IsMetaMask && env.Ethereum.Provider != nil {
		return &ProviderHandle{Kind: KindMetaMask, EVM: env.Ethereum.Provider}
	}
	if env.OKX != nil && env.OKX.Ethereum != nil {
		return &ProviderHandle{Kind: KindOKX, EVM: env.OKX.Ethereum}
	}
	if env.Ethereum != nil && env.Ethereum.Provider != nil {
		return &ProviderHandle{Kind: KindEthereum, EVM: env.Ethereum.Provider}
	}
	return nil
}
