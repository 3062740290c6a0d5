// Package wallet detects injected wallet providers in an explicit environment
// snapshot and exposes the connect capability of the one that wins the fixed
// priority order. It also loads simulated environments from YAML and
// classifies wallet addresses by chain family for display.
package wallet
