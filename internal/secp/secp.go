// Package secp marks the spot where the daemon would hold a shared,
// immutable cryptographic context if go-ethereum's and btcsuite's
// secp256k1 bindings needed one. Both libraries already expose
// stateless, allocation-free verification functions, so there is
// nothing to construct; this package only records that choice in one
// place. The signing paths (internal/wallet, internal/hbit,
// internal/herc20) do not import it.
package secp

// Name identifies the curve used throughout the daemon. No package in
// the tree reads it.
const Name = "secp256k1"
