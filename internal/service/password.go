package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2id parameters; encoded into the hash so they can evolve without
// breaking stored credentials.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// hashPassword derives an argon2id hash with a fresh random salt, encoded as
// $argon2id$v=19$m=65536,t=1,p=4$BASE64_SALT$BASE64_HASH.
func hashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, encodedSalt, encodedHash), nil
}

// verifyPassword re-derives the hash with the parameters and salt embedded in
// the stored value and compares in constant time.
func verifyPassword(hashedPassword, password string) bool {
	sections := strings.Split(strings.TrimPrefix(hashedPassword, "$"), "$")
	// Expected: ["argon2id", "v=19", "m=65536,t=1,p=4", salt, hash]
	if len(sections) != 5 || sections[0] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(sections[1], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(sections[2], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(sections[3])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return false
	}

	actual := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1
}
