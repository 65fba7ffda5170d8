// Package credentials issues and verifies the opaque API keys sold through
// billing. Keys are random, prefixed, and stored only as a salted SHA-256
// hash; the plaintext leaves this package exactly once at issuance.
package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math"
	"strings"

	"github.com/quantica-hq/billing/internal/billing/domain"
	"github.com/quantica-hq/billing/internal/clock"
)

const (
	// DefaultPrefix tags issued keys when no prefix is configured.
	DefaultPrefix = "QNT"

	keyBytes      = 32
	saltBytes     = 16
	recordIDBytes = 12
	segmentLen    = 8
)

// Manager generates, hashes and verifies API-key credentials. It is
// stateless apart from the configured key prefix and safe for concurrent
// use.
type Manager struct {
	prefix string
	clock  clock.Clock
}

// New builds a manager with the given key prefix, falling back to
// DefaultPrefix when empty. A nil clock means wall-clock time.
func New(prefix string, clk clock.Clock) *Manager {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Manager{prefix: prefix, clock: clk}
}

// Issue draws a fresh key for the given owner and returns the plaintext
// together with its record. The plaintext is never persisted.
func (m *Manager) Issue(userID, paymentID string, tier domain.Tier, usageLimit *int64) (*domain.IssuedAPIKey, error) {
	raw := make([]byte, keyBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, domain.ErrIO("drawing key material", err)
	}

	plaintext := m.formatKey(raw)

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, domain.ErrIO("drawing key salt", err)
	}

	idBytes := make([]byte, recordIDBytes)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, domain.ErrIO("drawing record id", err)
	}

	record := domain.APIKeyRecord{
		ID:         "key_" + hex.EncodeToString(idBytes),
		HashedKey:  hashWithSalt(plaintext, salt),
		UserID:     userID,
		PaymentID:  paymentID,
		Tier:       tier,
		CreatedAt:  m.clock.Now().Unix(),
		UsageLimit: usageLimit,
	}

	return &domain.IssuedAPIKey{APIKey: plaintext, Record: record}, nil
}

// Verify checks a candidate key against a stored record. Revoked records and
// malformed stored hashes fail verification; there is no error path.
func (m *Manager) Verify(candidate string, record *domain.APIKeyRecord) bool {
	if record == nil || record.Revoked {
		return false
	}

	salt, expected, ok := splitHashedKey(record.HashedKey)
	if !ok {
		return false
	}

	recomputed := hashDigest(candidate, salt)
	if len(recomputed) != len(expected) {
		return false
	}
	return subtle.ConstantTimeCompare(recomputed, expected) == 1
}

// MarkUse consumes one unit of the record's usage allowance. Mutation only;
// the caller persists the record.
func (m *Manager) MarkUse(record *domain.APIKeyRecord) {
	if record.UsageCount < math.MaxInt64 {
		record.UsageCount++
	}
	now := m.clock.Now().Unix()
	record.LastUsedAt = &now
}

// formatKey renders raw bytes as PREFIX-XXXXXXXX-... with uppercase hex in
// eight-character groups.
func (m *Manager) formatKey(raw []byte) string {
	encoded := strings.ToUpper(hex.EncodeToString(raw))
	segments := make([]string, 0, len(encoded)/segmentLen+1)
	segments = append(segments, m.prefix)
	for start := 0; start < len(encoded); start += segmentLen {
		end := start + segmentLen
		if end > len(encoded) {
			end = len(encoded)
		}
		segments = append(segments, encoded[start:end])
	}
	return strings.Join(segments, "-")
}

// hashWithSalt encodes hex(salt) + ":$" + hex(sha256(salt || key)).
func hashWithSalt(key string, salt []byte) string {
	digest := hashDigest(key, salt)
	return hex.EncodeToString(salt) + ":$" + hex.EncodeToString(digest)
}

func hashDigest(key string, salt []byte) []byte {
	hasher := sha256.New()
	hasher.Write(salt)
	hasher.Write([]byte(key))
	return hasher.Sum(nil)
}

func splitHashedKey(encoded string) (salt, digest []byte, ok bool) {
	saltHex, digestHex, found := strings.Cut(encoded, ":")
	if !found {
		return nil, nil, false
	}
	digestHex = strings.TrimPrefix(digestHex, "$")

	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, nil, false
	}
	digest, err = hex.DecodeString(digestHex)
	if err != nil {
		return nil, nil, false
	}
	return salt, digest, true
}
