package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Params tunes the Argon2id work factor.
type Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  uint32
}

// DefaultParams follows the OWASP minimum for Argon2id (19 MiB, t=2, p=1).
var DefaultParams = Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	KeyLength:   32,
	SaltLength:  16,
}

// Upper bounds accepted when decoding a stored digest, so a corrupted row
// cannot make a login allocate gigabytes.
const (
	maxMemory     = 1 << 20 // 1 GiB
	maxIterations = 16
	maxKeyLength  = 128
)

var errMalformedDigest = errors.New("cryptox: malformed argon2id digest")

// HashPassword returns a PHC encoded Argon2id digest of password using
// DefaultParams and a fresh random salt.
func HashPassword(password string) (string, error) {
	return HashPasswordWith(password, DefaultParams)
}

// HashPasswordWith is HashPassword with explicit parameters.
func HashPasswordWith(password string, p Params) (string, error) {
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: read salt: %w", err)
	}

	key := argon2.IDKey(peppered(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches the encoded digest. Any
// malformed or foreign digest is simply a mismatch.
func VerifyPassword(password, encoded string) bool {
	d, err := decodeDigest(encoded)
	if err != nil {
		return false
	}

	computed := argon2.IDKey(
		peppered(password),
		d.salt,
		d.params.Iterations,
		d.params.Memory,
		d.params.Parallelism,
		d.params.KeyLength,
	)
	return subtle.ConstantTimeCompare(computed, d.key) == 1
}

// NeedsRehash reports whether encoded was produced with parameters other
// than DefaultParams.
func NeedsRehash(encoded string) bool {
	d, err := decodeDigest(encoded)
	if err != nil {
		return true
	}
	p := d.params
	return p.Memory != DefaultParams.Memory ||
		p.Iterations != DefaultParams.Iterations ||
		p.Parallelism != DefaultParams.Parallelism ||
		p.KeyLength != DefaultParams.KeyLength
}

type digest struct {
	params Params
	salt   []byte
	key    []byte
}

// decodeDigest parses $argon2id$v=19$m=X,t=Y,p=Z$salt$key.
func decodeDigest(encoded string) (digest, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return digest{}, errMalformedDigest
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return digest{}, errMalformedDigest
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return digest{}, errMalformedDigest
	}
	if p.Memory == 0 || p.Memory > maxMemory ||
		p.Iterations == 0 || p.Iterations > maxIterations ||
		p.Parallelism == 0 {
		return digest{}, errMalformedDigest
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return digest{}, errMalformedDigest
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > maxKeyLength {
		return digest{}, errMalformedDigest
	}

	p.SaltLength = uint32(len(salt)) // #nosec G115 - bounded by the encoded row
	p.KeyLength = uint32(len(key))   // #nosec G115 - bounded by maxKeyLength

	return digest{params: p, salt: salt, key: key}, nil
}
