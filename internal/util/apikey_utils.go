package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/avelora/keygate-api/internal/domain/apikey"
)

func generateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func generateRandomString(length int) (string, error) {
	byteLength := (length*3 + 3) / 4
	b, err := generateRandomBytes(byteLength)
	if err != nil {
		return "", err
	}

	str := base64.URLEncoding.EncodeToString(b)
	str = strings.ReplaceAll(str, "-", "")
	str = strings.ReplaceAll(str, "_", "")
	if len(str) > length {
		return str[:length], nil
	}

	return str, nil
}

// GenerateAPIKey mints a raw credential of the form gk_{env}_{random}.
// Only the sha256 digest of the full string is ever stored; the prefix is
// the display handle shown in key listings.
func GenerateAPIKey(env apikey.Environment) (fullKey string, prefix string, secretHash string, err error) {
	secret, err := generateRandomString(apikey.SecretLength)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate secret: %w", err)
	}

	fullKey = fmt.Sprintf(apikey.FullKeyFormat, env, secret)
	prefix = secret[:apikey.PrefixLength]
	secretHash = HashAPIKey(fullKey)

	return fullKey, prefix, secretHash, nil
}

// HashAPIKey computes the one-way digest used for key lookup. The raw key
// never touches storage or logs.
func HashAPIKey(fullKey string) string {
	hashBytes := sha256.Sum256([]byte(fullKey))
	return fmt.Sprintf("%x", hashBytes)
}
