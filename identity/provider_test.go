package identity

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var desktop = Traits{
	UserAgent:      "Mozilla/5.0 (X11; Linux x86_64)",
	Language:       "en-US",
	ScreenSize:     "1920x1080",
	TimezoneOffset: "-300",
	StorageFlags:   "ls,ss,idb",
}

func TestSessionID_GeneratedOnceAndPersisted(t *testing.T) {
	store := NewMemoryStore()
	p := NewProvider(store, nil, Traits{})
	p.now = func() time.Time { return time.UnixMilli(1700000000000) }

	id := p.SessionID()
	assert.True(t, strings.HasPrefix(id, "session_1700000000000_"))
	assert.Equal(t, id, p.SessionID())

	stored, ok := store.Get(KeySession)
	require.True(t, ok)
	assert.Equal(t, id, stored)

	// A new page load over the same storage sees the same token.
	assert.Equal(t, id, NewProvider(store, nil, Traits{}).SessionID())

	store.Clear()
	assert.NotEqual(t, id, NewProvider(store, nil, Traits{}).SessionID())
}

func TestDeviceFingerprint_Memoized(t *testing.T) {
	calls := 0
	primary := FingerprintFunc(func(context.Context) (string, error) {
		calls++
		return "visitor-123", nil
	})
	p := NewProvider(NewMemoryStore(), primary, desktop)

	assert.Equal(t, "visitor-123", p.DeviceFingerprint(context.Background()))
	assert.Equal(t, "visitor-123", p.DeviceFingerprint(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestDeviceFingerprint_FallsBack(t *testing.T) {
	failing := FingerprintFunc(func(context.Context) (string, error) {
		return "", errors.New("script blocked")
	})

	a := NewProvider(NewMemoryStore(), failing, desktop).DeviceFingerprint(context.Background())
	b := NewProvider(NewMemoryStore(), nil, desktop).DeviceFingerprint(context.Background())

	assert.True(t, strings.HasPrefix(a, "fb_"))
	assert.Equal(t, a, b, "fallback hash must be stable for the same traits")

	other := desktop
	other.ScreenSize = "390x844"
	c := NewProvider(NewMemoryStore(), nil, other).DeviceFingerprint(context.Background())
	assert.NotEqual(t, a, c)
}

func TestDeviceFingerprint_Unavailable(t *testing.T) {
	p := NewProvider(NewMemoryStore(), Static(""), Traits{UserAgent: "curl/8"})
	assert.Empty(t, p.DeviceFingerprint(context.Background()))
}

func TestDeviceFingerprint_UsesCachedValue(t *testing.T) {
	store := NewMemoryStore()
	store.Set(KeyFingerprint, "cached-fp")

	p := NewProvider(store, Static(""), desktop)
	assert.Equal(t, "cached-fp", p.DeviceFingerprint(context.Background()))
}

func TestVotedList(t *testing.T) {
	p := NewProvider(NewMemoryStore(), nil, Traits{})

	assert.False(t, p.HasVoted("e1"))
	p.MarkVoted("e1")
	p.MarkVoted("e2")
	p.MarkVoted("e1")

	assert.True(t, p.HasVoted("e1"))
	assert.True(t, p.HasVoted("e2"))
	assert.Equal(t, []string{"e1", "e2"}, p.VotedEntries())

	p.ReplaceVoted([]string{"e3"})
	assert.False(t, p.HasVoted("e1"))
	assert.True(t, p.HasVoted("e3"))
}

func TestHashIP(t *testing.T) {
	assert.Empty(t, HashIP("", "salt"))
	assert.Len(t, HashIP("203.0.113.7", "salt"), 16)
	assert.Equal(t, HashIP("203.0.113.7", "salt"), HashIP("203.0.113.7", "salt"))
	assert.NotEqual(t, HashIP("203.0.113.7", "salt"), HashIP("203.0.113.7", "pepper"))
}

func TestCookieStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.AddCookie(&http.Cookie{Name: KeySession, Value: "session_1_abc"})

	store := NewCookieStore(c, 3600, false)
	p := NewProvider(store, nil, TraitsFromRequest(c.Request))

	assert.Equal(t, "session_1_abc", p.SessionID())

	p.MarkVoted("e1")
	assert.True(t, p.HasVoted("e1"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), KeyVoted+"=e1")
}
