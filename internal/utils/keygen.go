package utils

import (
	"crypto/rand"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// orderCodeLen is the number of random Crockford base32 characters appended
// to the store slug. ULID's trailing 16 characters are pure entropy.
const orderCodeLen = 8

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// GenerateOrderID returns a human-readable order id prefixed with the store
// slug, e.g. "bella-shop-7K3QX9ZD". The suffix is random, not sequential.
func GenerateOrderID(storeSlug string) (string, error) {
	prefix := strings.Trim(nonSlugChars.ReplaceAllString(strings.ToLower(storeSlug), "-"), "-")
	if prefix == "" {
		return "", fmt.Errorf("%w: store slug is empty", ErrBadRequest)
	}
	id, err := ulid.New(ulid.Now(), rand.Reader)
	if err != nil {
		return "", err
	}
	s := id.String()
	return fmt.Sprintf("%s-%s", prefix, s[len(s)-orderCodeLen:]), nil
}

// NewID returns a fresh opaque row identifier.
func NewID() string {
	return uuid.NewString()
}
