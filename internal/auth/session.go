package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	defaultSessionTTL = 30 * 24 * time.Hour
	tokenBytes         = 32
)

var (
	ErrInvalidUsername     = errors.New("invalid username")
	ErrInvalidPassword     = errors.New("invalid password")
	ErrInvalidEmail        = errors.New("invalid email")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrEmailTaken          = errors.New("email already in use")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnknownEmail        = errors.New("unknown email")
	ErrWrongSecurityAnswer = errors.New("wrong security answer")
	ErrAccountSuspended    = errors.New("account suspended")
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,31}$`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// Manager provides in-memory account/session management for single-binary
// deployment; NewServiceFromEnv swaps it for a persistent backend without
// changing the gateway's contract against Service.
type Manager struct {
	mu sync.Mutex

	nextAccountID uint64
	sessionTTL    time.Duration
	sessions      map[string]sessionRecord   // token -> account
	accountsByID  map[uint64]accountRecord   // account -> profile
	byUsername    map[string]uint64          // normalized username -> account
	byEmail       map[string]uint64          // normalized email -> account
}

type sessionRecord struct {
	AccountID uint64
	ExpiresAt time.Time
}

type accountRecord struct {
	AccountID            uint64
	Email                string
	Username             string
	PasswordHash         []byte
	SecurityQuestionIdx  int
	SecurityAnswerHash   []byte
	Suspended            bool
	Registered           bool
	LastLoginTime        time.Time
}

func NewManager() *Manager {
	return &Manager{
		nextAccountID: 100000, // start from a readable non-trivial range
		sessionTTL:    defaultSessionTTL,
		sessions:      make(map[string]sessionRecord),
		accountsByID:  make(map[uint64]accountRecord),
		byUsername:    make(map[string]uint64),
		byEmail:       make(map[string]uint64),
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return ErrInvalidUsername
	}
	return nil
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

func (m *Manager) issueSessionLocked(accountID uint64, now time.Time) string {
	sessionToken := mustToken()
	m.sessions[sessionToken] = sessionRecord{
		AccountID: accountID,
		ExpiresAt: now.Add(m.sessionTTL),
	}
	return sessionToken
}

func (m *Manager) resolveSessionLocked(token string, now time.Time) (accountID uint64, username string, ok bool) {
	if token == "" {
		return 0, "", false
	}
	rec, exists := m.sessions[token]
	if !exists {
		return 0, "", false
	}
	if !now.Before(rec.ExpiresAt) {
		delete(m.sessions, token)
		return 0, "", false
	}
	rec.ExpiresAt = now.Add(m.sessionTTL)
	m.sessions[token] = rec

	profile := m.accountsByID[rec.AccountID]
	return rec.AccountID, profile.Username, true
}

// Register creates a new account (bcrypt-hashed password and security
// answer) and returns an authenticated session token.
func (m *Manager) Register(email, username, password string, securityQuestionIdx int, securityAnswer string) (accountID uint64, sessionToken string, err error) {
	if err = validateEmail(email); err != nil {
		return 0, "", err
	}
	if err = validateUsername(username); err != nil {
		return 0, "", err
	}
	if err = validatePassword(password); err != nil {
		return 0, "", err
	}

	normalizedEmail := normalize(email)
	normalizedUser := normalize(username)

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, "", err
	}
	var answerHash []byte
	if securityAnswer != "" {
		answerHash, err = bcrypt.GenerateFromPassword([]byte(normalize(securityAnswer)), bcrypt.DefaultCost)
		if err != nil {
			return 0, "", err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byUsername[normalizedUser]; exists {
		return 0, "", ErrUsernameTaken
	}
	if _, exists := m.byEmail[normalizedEmail]; exists {
		return 0, "", ErrEmailTaken
	}

	m.nextAccountID++
	accountID = m.nextAccountID
	now := time.Now()
	m.accountsByID[accountID] = accountRecord{
		AccountID:           accountID,
		Email:               normalizedEmail,
		Username:            normalizedUser,
		PasswordHash:        passwordHash,
		SecurityQuestionIdx: securityQuestionIdx,
		SecurityAnswerHash:  answerHash,
		Registered:          true,
		LastLoginTime:       now,
	}
	m.byUsername[normalizedUser] = accountID
	m.byEmail[normalizedEmail] = accountID

	sessionToken = m.issueSessionLocked(accountID, now)
	return accountID, sessionToken, nil
}

// Login validates credentials by email and returns a fresh session.
func (m *Manager) Login(email, password string) (accountID uint64, sessionToken string, err error) {
	normalizedEmail := normalize(email)
	if normalizedEmail == "" || password == "" {
		return 0, "", ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	accountID, exists := m.byEmail[normalizedEmail]
	if !exists {
		return 0, "", ErrInvalidCredentials
	}

	profile := m.accountsByID[accountID]
	if !profile.Registered || len(profile.PasswordHash) == 0 {
		return 0, "", ErrInvalidCredentials
	}
	if profile.Suspended {
		return 0, "", ErrAccountSuspended
	}
	if bcrypt.CompareHashAndPassword(profile.PasswordHash, []byte(password)) != nil {
		return 0, "", ErrInvalidCredentials
	}

	now := time.Now()
	profile.LastLoginTime = now
	m.accountsByID[accountID] = profile
	sessionToken = m.issueSessionLocked(accountID, now)
	return accountID, sessionToken, nil
}

// ResolveSession validates and refreshes a session token.
func (m *Manager) ResolveSession(token string) (accountID uint64, username string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resolveSessionLocked(token, time.Now())
}

// Logout invalidates a session token.
func (m *Manager) Logout(token string) {
	if token == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// SetSuspended implements the admin ban/unban operation.
func (m *Manager) SetSuspended(accountID uint64, suspended bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile, ok := m.accountsByID[accountID]
	if !ok {
		return ErrUnknownEmail
	}
	profile.Suspended = suspended
	m.accountsByID[accountID] = profile
	return nil
}

// ListAccounts implements the admin user-listing operation.
func (m *Manager) ListAccounts(limit int) ([]Account, error) {
	if limit <= 0 {
		limit = 100
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]uint64, 0, len(m.accountsByID))
	for id := range m.accountsByID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if len(ids) > limit {
		ids = ids[:limit]
	}

	accounts := make([]Account, 0, len(ids))
	for _, id := range ids {
		profile := m.accountsByID[id]
		accounts = append(accounts, Account{
			AccountID:     profile.AccountID,
			Email:         profile.Email,
			Username:      profile.Username,
			Suspended:     profile.Suspended,
			LastLoginTime: profile.LastLoginTime,
		})
	}
	return accounts, nil
}

// Close is a no-op for the in-memory backend; it exists to satisfy Service.
func (m *Manager) Close() error { return nil }

func mustToken() string {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
