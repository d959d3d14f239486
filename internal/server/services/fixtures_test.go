package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeDirectory struct {
	mu    sync.Mutex
	users map[int64]*models.User
	err   error
}

func newDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[int64]*models.User{}}
}

func (d *fakeDirectory) add(u *models.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[u.ID] = u
}

func (d *fakeDirectory) remove(id int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, id)
}

func (d *fakeDirectory) GetByEmail(_ context.Context, email string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	for _, u := range d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (d *fakeDirectory) GetByID(_ context.Context, id int64) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	u, ok := d.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

// fakeLedger is an in-memory ledger without expiry; TTLs are recorded so
// tests can inspect them.
type fakeLedger struct {
	mu        sync.Mutex
	entries   map[string]time.Duration
	revokeErr error
	checkErr  error
}

func newLedger() *fakeLedger {
	return &fakeLedger{entries: map[string]time.Duration{}}
}

func (l *fakeLedger) Revoke(_ context.Context, token string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.revokeErr != nil {
		return l.revokeErr
	}
	if ttl <= 0 {
		return nil
	}
	l.entries[token] = ttl
	return nil
}

func (l *fakeLedger) IsRevoked(_ context.Context, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.checkErr != nil {
		return false, l.checkErr
	}
	_, ok := l.entries[token]
	return ok, nil
}

func (l *fakeLedger) ttl(token string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.entries[token]
	return d, ok
}

// countingHasher counts Verify calls.
type countingHasher struct {
	*auth.Hasher
	mu       sync.Mutex
	verifies int
}

func (h *countingHasher) Verify(password, hash string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return h.Hasher.Verify(password, hash)
}

func (h *countingHasher) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.verifies
}

var errBackend = errors.New("backend down")

const (
	alicePassword = "correct horse"
	aliceEmail    = "alice@example.com"
)

type fixture struct {
	clock     *fakeClock
	directory *fakeDirectory
	ledger    *fakeLedger
	hasher    *countingHasher
	issuer    *auth.Issuer
	validator *CredentialValidator
	login     *LoginService
	guard     *Authenticator
	alice     *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock:     newClock(),
		directory: newDirectory(),
		ledger:    newLedger(),
		hasher:    &countingHasher{Hasher: auth.NewHasher(4)},
	}
	f.issuer = auth.NewIssuer([]byte("test-secret"), time.Hour, f.clock.Now)

	hash, err := f.hasher.Hash(alicePassword)
	require.NoError(t, err)
	f.alice = &models.User{ID: 7, Name: "Alice", Email: aliceEmail, PasswordHash: hash}
	f.directory.add(f.alice)

	validator, err := NewCredentialValidator(f.directory, f.hasher)
	require.NoError(t, err)
	f.validator = validator
	f.login = NewLoginService(validator, f.issuer, f.ledger, logging.Nop{})
	f.guard = NewAuthenticator(f.issuer, f.ledger, f.directory, logging.Nop{})
	return f
}
