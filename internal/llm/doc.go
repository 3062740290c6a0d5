// Package llm defines the provider-neutral contract for the upstream text
// completion service used by the insight proxy.
package llm
