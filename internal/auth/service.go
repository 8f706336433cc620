package auth

import "time"

// Account is the admin-facing view of a registered user.
type Account struct {
	AccountID     uint64
	Email         string
	Username      string
	Suspended     bool
	LastLoginTime time.Time
}

// Service is the auth/session contract consumed by the gateway and the
// admin HTTP handlers.
type Service interface {
	Register(email, username, password string, securityQuestionIdx int, securityAnswer string) (accountID uint64, sessionToken string, err error)
	Login(email, password string) (accountID uint64, sessionToken string, err error)
	ResolveSession(token string) (accountID uint64, username string, ok bool)
	Logout(token string)
	SetSuspended(accountID uint64, suspended bool) error
	// ListAccounts returns up to limit accounts ordered by account ID, for
	// the admin control plane's user listing.
	ListAccounts(limit int) ([]Account, error)
	Close() error
}
