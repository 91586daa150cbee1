// Package gitrepo contains helpers for interpreting Git repository metadata.
//
// It compares remote URLs so an existing clone can be verified before reuse,
// and reads and writes .gitmodules through an order-preserving codec so that
// submodule tracking branches can be rewritten without disturbing unrelated
// entries.
package gitrepo
