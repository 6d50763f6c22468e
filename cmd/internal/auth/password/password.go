package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// HashLength is the native Argon2i output length in bytes.
	HashLength = 32

	// SaltLength is the salt length in characters.
	//
	// Good practice is to use the same number of random bytes as the hasher
	// outputs. The salt is limited to `[a-zA-Z0-9]`, which reduces the
	// entropy per byte from 256 to 62, roughly a quarter, so the salt is
	// quadrupled in length to retain entropy.
	SaltLength = HashLength * 4

	prefix = "$argon2$"

	saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Single-pass "simple" Argon2i parameterization.
const (
	argonTime    = 3
	argonMemory  = 4096 // KiB
	argonThreads = 1
)

// SaltyPassword is a salted, hashed password.
//
// The hash is always the Argon2i digest of a plaintext salted with exactly
// this salt; the pair is immutable once constructed.
type SaltyPassword struct {
	salt string
	hash [HashLength]byte
}

// Encode generates a fresh salt and hashes plaintext with it.
//
// It panics if the OS random source is unavailable; that is a process-level
// fault, not a recoverable error.
func Encode(plaintext string) SaltyPassword {
	salt := newSalt()
	return SaltyPassword{
		salt: salt,
		hash: digest(plaintext, salt),
	}
}

// Parse reads a serialized credential of the form `$argon2$<salt>$<hex hash>$`.
//
// Any grammar violation reports ok=false rather than an error: corrupt or
// foreign-format records are "unrecognized", and callers decide whether that
// means a login failure or a data-corruption flag.
func Parse(serialized string) (SaltyPassword, bool) {
	if len(serialized) <= len(prefix) {
		return SaltyPassword{}, false
	}
	if !strings.HasPrefix(serialized, prefix) || !strings.HasSuffix(serialized, "$") {
		return SaltyPassword{}, false
	}
	body := serialized[len(prefix) : len(serialized)-1]

	// Exactly one further '$' separates salt from hash.
	split := strings.IndexByte(body, '$')
	if split < 0 {
		return SaltyPassword{}, false
	}
	salt, hexHash := body[:split], body[split+1:]
	if strings.IndexByte(hexHash, '$') >= 0 {
		return SaltyPassword{}, false
	}

	if len(hexHash) != HashLength*2 {
		return SaltyPassword{}, false
	}
	raw, err := hex.DecodeString(hexHash)
	if err != nil {
		return SaltyPassword{}, false
	}

	p := SaltyPassword{salt: salt}
	copy(p.hash[:], raw)
	return p, true
}

// Verify reports whether plaintext matches this password.
//
// The recomputed digest is compared in constant time to avoid a timing side
// channel.
func (p SaltyPassword) Verify(plaintext string) bool {
	candidate := digest(plaintext, p.salt)
	return subtle.ConstantTimeCompare(candidate[:], p.hash[:]) == 1
}

// String serializes the password as `$argon2$<salt>$<hex hash>$`.
// It is the exact inverse of Parse.
func (p SaltyPassword) String() string {
	var b strings.Builder
	b.Grow(len(prefix) + len(p.salt) + 1 + HashLength*2 + 1)
	b.WriteString(prefix)
	b.WriteString(p.salt)
	b.WriteByte('$')
	b.WriteString(hex.EncodeToString(p.hash[:]))
	b.WriteByte('$')
	return b.String()
}

func digest(plaintext, salt string) [HashLength]byte {
	var out [HashLength]byte
	copy(out[:], argon2.Key([]byte(plaintext), []byte(salt), argonTime, argonMemory, argonThreads, HashLength))
	return out
}

// newSalt draws SaltLength characters from saltAlphabet using the OS random
// source. Rejection sampling keeps the draw uniform across the 62 symbols.
func newSalt() string {
	// Largest multiple of len(saltAlphabet) that fits in a byte.
	const limit = byte(len(saltAlphabet) * (256 / len(saltAlphabet)))

	out := make([]byte, 0, SaltLength)
	buf := make([]byte, SaltLength)
	for len(out) < SaltLength {
		if _, err := rand.Read(buf); err != nil {
			panic("password: OS random source unavailable: " + err.Error())
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, saltAlphabet[int(b)%len(saltAlphabet)])
			if len(out) == SaltLength {
				break
			}
		}
	}
	return string(out)
}
