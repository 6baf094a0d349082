package cryptox

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16

	passwordScheme = "argon2id"
)

func derive(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// HashPassword encodes password as "argon2id$<salt hex>$<key hex>" with a
// fresh random salt.
func HashPassword(password string) string {
	salt := common.GenerateRandByteArray(saltLen)
	key := derive([]byte(password), salt)
	return strings.Join([]string{passwordScheme, hex.EncodeToString(salt), hex.EncodeToString(key)}, "$")
}

// CheckPassword compares password against a value produced by HashPassword
// in constant time.
func CheckPassword(encoded, password string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 3 || parts[0] != passwordScheme {
		return false, fmt.Errorf("unrecognised password encoding")
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false, fmt.Errorf("bad salt: %w", err)
	}
	want, err := hex.DecodeString(parts[2])
	if err != nil {
		return false, fmt.Errorf("bad key: %w", err)
	}

	got := derive([]byte(password), salt)
	defer common.WipeByteArray(got)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// IsHashedPassword reports whether encoded looks like HashPassword output.
func IsHashedPassword(encoded string) bool {
	return strings.HasPrefix(encoded, passwordScheme+"$")
}
