// Package fakes provides test doubles for relsetup's collaborator interfaces.
//
// Fakes are hand-written (not generated) so tests control every response:
// scripted prompt answers, an in-memory keychain, a Secrets Manager stub,
// and a recording vault.
//
// Usage:
//
//	kc := fakes.NewFakeKeyringClient()
//	kc.SetSecret("relsetup:npm", "alice", "hunter2")
//	v := vault.NewKeyring(kc)
package fakes
