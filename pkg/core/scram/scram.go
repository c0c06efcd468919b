// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scram exports the expected interfaces for Salted Challenge
// Response Authentication Mechanism (SCRAM) hashes. For the
// corresponding implementation, check the adapter layer.
//
// The REST API of the transfer service is protected by an API token.
// The token itself is never stored. Instead, its SCRAM hash string is
// computed once (see the Hasher interface and the hash-token command)
// and is kept in the configuration file. Each request presents the
// plaintext token which is verified against that stored hash using
// the Verifier interface. The full client/server SCRAM conversation
// is not needed because the token travels over the same channel as
// the request itself.
package scram

// Hasher represents the expectations from a SCRAM hasher implementation
// which for a specific underlying hash function (e.g., SHA1 or SHA256)
// computes the storedKey and serverKey values whenever its Hash method
// is called with the relevant pass, salt, and iters arguments,
// representing password, random salt value, and hashing iterations
// count. A PBKDF2 algorithm is computed in order to slow down a
// dictionary attack as detailed in RFC 5802.
type Hasher interface {
	// Hash computes a hash string following the standard scram hash
	// format, so it can be stored and used later for authentication.
	//
	// The pass argument must be non-empty. The salt must contain a
	// base64 encoding of the desired salt bytes, otherwise, if an
	// empty value is passed, a random salt will be generated and
	// used instead. The iters must be at least equal to 4096.
	// However, the RFC 7677 recommends to use 15000 or more.
	//
	// In absence of errors, a hashed string will be returned which
	// conforms to the following format.
	//
	//	SCRAM-{SHA-X}${iters}:{b64-salt}${b64-storedKey}:{b64-serverKey}
	Hash(pass, salt string, iters int) (string, error)
}

// Verifier checks a plaintext password against a hash string which
// was computed by a Hasher before.
type Verifier interface {
	// Verify returns true if pass matches the hash string.
	// An error is returned if hash is not a well-formed hash string
	// for the Verifier mechanism.
	Verify(pass, hash string) (bool, error)
}
