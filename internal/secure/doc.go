// Package secure keeps credentials encrypted while they sit in process memory.
//
// Tokens and passwords collected during setup are held in memguard enclaves
// (XSalsa20Poly1305, mlocked where the platform allows) and only decrypted
// for the duration of a single read:
//
//	buf := secure.NewSecureBuffer([]byte(token))
//	defer buf.Destroy()
//
//	value, err := buf.Reveal()
//
// Call memguard.Purge (see Purge) before the process exits to wipe any
// remaining key material.
package secure
