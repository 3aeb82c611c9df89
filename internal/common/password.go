// File: internal/common/password.go
package common

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Params are the cost parameters embedded into every digest. Raising
// them affects new hashes only; verification always replays the parameters
// stored in the digest, so old digests keep working.
type Argon2Params struct {
	Memory      uint32 // KiB
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

// DefaultArgon2Params mirrors the production tuning (100 MiB, 3 passes).
var DefaultArgon2Params = Argon2Params{Memory: 102400, Time: 3, Parallelism: 8, KeyLen: 32}

// HashPassword hashes a plaintext password into a PHC-format argon2id string:
// $argon2id$v=19$m=...,t=...,p=...$<saltB64>$<keyB64>
func HashPassword(password string) (string, error) {
	return hashPasswordWithParams(DefaultArgon2Params, password)
}

func hashPasswordWithParams(p Argon2Params, password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("empty password")
	}
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		p.Memory, p.Time, p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// CheckPasswordHash verifies a plaintext password against a stored digest.
// A malformed digest verifies as false; it never panics or returns an error.
func CheckPasswordHash(password, digest string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" || parts[2] != "v=19" {
		return false
	}
	var memory, time, parallelism int
	n, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &parallelism)
	if err != nil || n != 3 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(storedKey) == 0 {
		return false
	}
	key := argon2.IDKey([]byte(password), salt,
		uint32(time), uint32(memory), uint8(parallelism), uint32(len(storedKey)))
	return subtle.ConstantTimeCompare(key, storedKey) == 1
}
