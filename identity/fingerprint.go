package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// Request headers carrying client-side identity signals.
const (
	HeaderFingerprint  = "X-Device-Fingerprint"
	HeaderSessionID    = "X-Session-ID"
	HeaderScreenSize   = "X-Screen-Size"
	HeaderTimezone     = "X-Timezone-Offset"
	HeaderStorageFlags = "X-Storage-Flags"
)

// ErrFingerprintUnavailable means no fingerprint could be derived.
var ErrFingerprintUnavailable = errors.New("device fingerprint unavailable")

// Fingerprinter computes a device fingerprint. Implementations promise that the
// same physical device yields the same string most of the time, not always.
type Fingerprinter interface {
	Fingerprint(ctx context.Context) (string, error)
}

// FingerprintFunc adapts a function to Fingerprinter.
type FingerprintFunc func(ctx context.Context) (string, error)

func (f FingerprintFunc) Fingerprint(ctx context.Context) (string, error) {
	return f(ctx)
}

// Static returns a Fingerprinter that reports a value computed elsewhere, such as
// the visitor id sent by the browser fingerprinting script. Empty means unavailable.
func Static(value string) Fingerprinter {
	v := strings.TrimSpace(value)
	return FingerprintFunc(func(context.Context) (string, error) {
		if v == "" {
			return "", ErrFingerprintUnavailable
		}
		return v, nil
	})
}

// Traits is the reduced characteristic set hashed by the fallback fingerprint.
type Traits struct {
	UserAgent      string
	Language       string
	ScreenSize     string
	TimezoneOffset string
	StorageFlags   string
}

// TraitsFromRequest collects traits from request headers.
func TraitsFromRequest(r *http.Request) Traits {
	return Traits{
		UserAgent:      r.UserAgent(),
		Language:       r.Header.Get("Accept-Language"),
		ScreenSize:     r.Header.Get(HeaderScreenSize),
		TimezoneOffset: r.Header.Get(HeaderTimezone),
		StorageFlags:   r.Header.Get(HeaderStorageFlags),
	}
}

// FallbackFingerprint hashes the traits. User agent and screen size are required;
// without them the hash would collapse too many devices together.
func FallbackFingerprint(t Traits) (string, error) {
	if t.UserAgent == "" || t.ScreenSize == "" {
		return "", ErrFingerprintUnavailable
	}

	h := sha256.New()
	for _, part := range []string{t.UserAgent, t.Language, t.ScreenSize, t.TimezoneOffset, t.StorageFlags} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "fb_" + hex.EncodeToString(h.Sum(nil)[:16]), nil
}
