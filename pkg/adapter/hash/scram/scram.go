// Copyright (c) 2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package scram presents an implementation of SCRAM-SHA-256 and
// SCRAM-SHA-1 mechanisms. See the SHA256 and SHA1 functions for their
// instantiation logic. When a mechanism for a specific underlying hash
// function is instantiated, it can be used for generation of hash
// strings in the SCRAM standard format.
// This format is also known as the scram encrypted password format,
// however, it may not be reversed (so no encryption/decryption is
// taking place). A hash string may be verified against a plaintext
// password using the Verify method.
package scram

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xdg-go/scram"
)

// Mechanism provides a Salted Challenge Response Authentication
// Mechanism (SCRAM) having a fixed underlying hash algorithm.
//
// It implements the Hasher and Verifier interfaces of the
// github.com/momeni/dtransfer/pkg/core/scram package, so it may be used
// without any dependency on the actual implementation. This package
// relies on the github.com/xdg-go/scram module for the SCRAM
// implementation.
type Mechanism struct {
	hashGenerator scram.HashGeneratorFcn
	outLen        int // bytes
	name          string
}

// SHA1 returns a new Mechanism instance using the SHA1 as its
// underlying hash algorithm.
func SHA1() *Mechanism {
	return &Mechanism{
		hashGenerator: scram.SHA1,
		outLen:        160 / 8,
		name:          "SCRAM-SHA-1",
	}
}

// SHA256 returns a new Mechanism instance using the SHA256 as its
// underlying hash algorithm.
func SHA256() *Mechanism {
	return &Mechanism{
		hashGenerator: scram.SHA256,
		outLen:        256 / 8,
		name:          "SCRAM-SHA-256",
	}
}

// DefaultIters is the recommended iterations count for new hashes.
const DefaultIters = 15000

// ErrMalformedHash indicates that a hash string could not be parsed.
var ErrMalformedHash = errors.New("malformed scram hash")

// ByName returns the Mechanism with the given name, such as the
// "SCRAM-SHA-256", or nil if name is not known.
func ByName(name string) *Mechanism {
	for _, m := range []*Mechanism{SHA256(), SHA1()} {
		if m.name == name {
			return m
		}
	}
	return nil
}

// Name returns the mechanism name, such as "SCRAM-SHA-256".
func (m *Mechanism) Name() string {
	return m.name
}

// Hash computes a hash string following the standard scram hash format,
// so it can be stored and used later for authentication.
//
// The pass argument must be non-empty. The user and authzID params
// are not asked because they are not used in the hash output. The
// given password will be normalized according to the SASLprep
// profile (defined by RFC 4013) of the stringprep algorithm (which
// is defined by RFC 3454) and any failure in that normalization
// returns an error.
//
// The salt must contain a base64 encoding of the desired salt
// bytes, otherwise, if an empty value is passed, a random salt will
// be generated and used instead.
// The iters must be at least equal to 4096. However, the RFC 7677
// recommends to use 15000 or more.
//
// In absence of errors, a hashed string will be returned which
// conforms to the following format.
//
//	SCRAM-{SHA-X}${iters}:{b64-salt}${b64-storedKey}:{b64-serverKey}
//
// This string (consisting only of ASCII printable letters) can be
// kept in a configuration file and be verified later by the Verify
// method. It is also accepted by the PostgreSQL DBMS as a role
// password.
func (m *Mechanism) Hash(pass, salt string, iters int) (string, error) {
	switch {
	case pass == "":
		return "", errors.New("password must be non-empty")
	case iters < 4096:
		return "", fmt.Errorf("iters (%d) is less than 4096", iters)
	}
	if salt == "" {
		saltBytes := make([]byte, m.outLen)
		if _, err := rand.Read(saltBytes); err != nil {
			return "", fmt.Errorf("creating random salt: %w", err)
		}
		s := make([]byte, base64.StdEncoding.EncodedLen(m.outLen))
		base64.StdEncoding.Encode(s, saltBytes)
		salt = string(s)
	}
	sc, err := m.storedCredentials(pass, salt, iters)
	if err != nil {
		return "", fmt.Errorf("obtaining stored credentials: %w", err)
	}
	h := fmt.Sprintf(
		"%s$%d:%s$%s:%s",
		m.name,
		iters, salt,
		base64.StdEncoding.EncodeToString(sc.StoredKey),
		base64.StdEncoding.EncodeToString(sc.ServerKey),
	)
	return h, nil
}

func (m *Mechanism) storedCredentials(
	pass, salt string, iters int,
) (*scram.StoredCredentials, error) {
	c, err := m.hashGenerator.NewClient("username", pass, "authzID")
	if err != nil {
		return nil, fmt.Errorf("creating SCRAM client: %w", err)
	}
	saltBytes, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 salt: %w", err)
	}
	// these options only matter for NewConversation which is not used
	c = c.WithMinIterations(iters).WithNonceGenerator(func() string {
		return salt
	})
	sc := c.GetStoredCredentials(scram.KeyFactors{
		Salt:  string(saltBytes),
		Iters: iters,
	})
	return &sc, nil
}

// Verify parses the hash string, recomputes the stored and server keys
// of pass using the salt and iterations count of hash, and compares
// them with the keys of hash in constant time. The hash must be
// computed by the same mechanism as m.
func (m *Mechanism) Verify(pass, hash string) (bool, error) {
	name, iters, salt, keys, err := parse(hash)
	if err != nil {
		return false, err
	}
	if name != m.name {
		return false, fmt.Errorf(
			"%w: mechanism %q is not %q", ErrMalformedHash, name, m.name,
		)
	}
	if pass == "" {
		return false, nil
	}
	h, err := m.Hash(pass, salt, iters)
	if err != nil {
		return false, err
	}
	_, _, _, expected, err := parse(h)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare([]byte(keys), []byte(expected)) == 1, nil
}

// parse splits a hash string into its mechanism name, iterations count,
// base64 salt, and the "{b64-storedKey}:{b64-serverKey}" keys part.
func parse(hash string) (name string, iters int, salt, keys string, err error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 3 {
		err = fmt.Errorf("%w: expected three $-separated parts", ErrMalformedHash)
		return
	}
	name, keys = parts[0], parts[2]
	itersStr, salt, ok := strings.Cut(parts[1], ":")
	if !ok || salt == "" {
		err = fmt.Errorf("%w: expected iters:salt", ErrMalformedHash)
		return
	}
	if iters, err = strconv.Atoi(itersStr); err != nil {
		err = fmt.Errorf("%w: iters: %w", ErrMalformedHash, err)
		return
	}
	if _, _, ok = strings.Cut(keys, ":"); !ok {
		err = fmt.Errorf("%w: expected storedKey:serverKey", ErrMalformedHash)
	}
	return
}

// FromHash returns the Mechanism which has computed the hash string.
func FromHash(hash string) (*Mechanism, error) {
	name, _, _, _, err := parse(hash)
	if err != nil {
		return nil, err
	}
	m := ByName(name)
	if m == nil {
		return nil, fmt.Errorf("%w: unknown mechanism %q", ErrMalformedHash, name)
	}
	return m, nil
}
