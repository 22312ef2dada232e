package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Provider derives the identity bundle for one browsing context. A Provider is
// meant to live for one page load or request; the fingerprint is computed once.
type Provider struct {
	store   Store
	primary Fingerprinter
	traits  Traits
	now     func() time.Time

	once        sync.Once
	fingerprint string
}

// NewProvider creates a provider. primary may be nil, in which case only the
// fallback hash over traits is used.
func NewProvider(store Store, primary Fingerprinter, traits Traits) *Provider {
	return &Provider{
		store:   store,
		primary: primary,
		traits:  traits,
		now:     time.Now,
	}
}

// SessionID returns the stored session token, creating and storing one if needed.
func (p *Provider) SessionID() string {
	if id, ok := p.store.Get(KeySession); ok {
		return id
	}
	id := NewSessionID(p.now())
	p.store.Set(KeySession, id)
	return id
}

// NewSessionID builds a session token from a millisecond timestamp and a random suffix.
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("session_%d_%s", now.UnixMilli(), suffix)
}

// DeviceFingerprint returns the device fingerprint, or "" when neither the
// primary nor the fallback method produced one. The result is memoized.
func (p *Provider) DeviceFingerprint(ctx context.Context) string {
	p.once.Do(func() {
		p.fingerprint = p.computeFingerprint(ctx)
	})
	return p.fingerprint
}

func (p *Provider) computeFingerprint(ctx context.Context) string {
	if p.primary != nil {
		if fp, err := p.primary.Fingerprint(ctx); err == nil && fp != "" {
			p.store.Set(KeyFingerprint, fp)
			return fp
		}
	}

	if cached, ok := p.store.Get(KeyFingerprint); ok {
		return cached
	}

	fp, err := FallbackFingerprint(p.traits)
	if err != nil {
		return ""
	}
	p.store.Set(KeyFingerprint, fp)
	return fp
}

// MarkVoted records entryID in the client-side voted list.
func (p *Provider) MarkVoted(entryID string) {
	voted := p.VotedEntries()
	if slices.Contains(voted, entryID) {
		return
	}
	p.store.Set(KeyVoted, strings.Join(append(voted, entryID), ","))
}

// HasVoted reports whether entryID is in the client-side voted list. The list is
// a display hint only and never decides whether a vote is accepted.
func (p *Provider) HasVoted(entryID string) bool {
	return slices.Contains(p.VotedEntries(), entryID)
}

// VotedEntries returns the client-side voted list.
func (p *Provider) VotedEntries() []string {
	raw, ok := p.store.Get(KeyVoted)
	if !ok || raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// ReplaceVoted overwrites the client-side voted list, typically with the
// authoritative list loaded from stored votes.
func (p *Provider) ReplaceVoted(entryIDs []string) {
	p.store.Set(KeyVoted, strings.Join(entryIDs, ","))
}

// HashIP returns a salted one-way hash of an address, or "" for an empty address.
func HashIP(ip, salt string) string {
	if ip == "" {
		return ""
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil)[:8])
}
