package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Entry is one cached value as stored in every tier
type Entry struct {
	Hash        string          `json:"hash"`
	Key         string          `json:"key"`
	Value       json.RawMessage `json:"value"`
	CreatedAt   time.Time       `json:"createdAt"`
	TTL         time.Duration   `json:"ttl"`
	AccessCount int64           `json:"accessCount"`
	Size        int             `json:"size"`
}

// Expired reports whether the entry is stale at now
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.CreatedAt.Add(e.TTL))
}

// withTTL returns a copy carrying a tier's TTL
func (e *Entry) withTTL(ttl time.Duration) *Entry {
	cp := *e
	cp.TTL = ttl
	return &cp
}

// HashKey derives the tier key: SHA-256 over the canonical JSON of the logical key.
// The canonical form is returned alongside for pattern invalidation.
func HashKey(logical any) (hash string, canonical string, err error) {
	raw, err := json.Marshal(logical)
	if err != nil {
		return "", "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), string(raw), nil
}
