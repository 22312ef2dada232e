package identity

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

// Storage keys shared by every Store implementation.
const (
	KeySession     = "chili_session"
	KeyVoted       = "chili_voted"
	KeyFingerprint = "chili_fp"
)

// Store is the client-scoped key-value storage that holds the session token,
// the voted-entry list and the cached fingerprint.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MemoryStore is a Store backed by a map.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Clear drops everything, as a browser does when the user clears site data.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]string)
}

// CookieStore keeps values in long-lived cookies on the current request.
// Values set during the request are visible to later Gets on the same store.
type CookieStore struct {
	c       *gin.Context
	maxAge  int
	secure  bool
	pending map[string]string
}

// NewCookieStore wraps the request's cookies. maxAge is in seconds.
func NewCookieStore(c *gin.Context, maxAge int, secure bool) *CookieStore {
	return &CookieStore{
		c:       c,
		maxAge:  maxAge,
		secure:  secure,
		pending: make(map[string]string),
	}
}

func (s *CookieStore) Get(key string) (string, bool) {
	if v, ok := s.pending[key]; ok {
		return v, true
	}
	v, err := s.c.Cookie(key)
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

func (s *CookieStore) Set(key, value string) {
	s.pending[key] = value
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(key, value, s.maxAge, "/", "", s.secure, true)
}
