package simpleregistry

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// Dist describes one stored artifact of a package version. Only Path is read
// by this package; the remaining fields belong to the publishing flow.
type Dist struct {
	DistID    string `json:"dist_id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Shasum    string `json:"shasum"`
	Integrity string `json:"integrity"`
	Path      string `json:"path"`
}

// PackageVersion is the subset of a published version needed to locate its
// artifacts.
type PackageVersion struct {
	PackageID        string    `json:"package_id"`
	PackageVersionID string    `json:"package_version_id"`
	Version          string    `json:"version"`
	ManifestDist     Dist      `json:"manifest_dist"`
	AbbreviatedDist  Dist      `json:"abbreviated_dist"`
	ReadmeDist       Dist      `json:"readme_dist"`
	TarDist          Dist      `json:"tar_dist"`
	PublishTime      time.Time `json:"publish_time"`
}

// Download is the result of opening a dist for download. Exactly one of URL
// or Body is set, depending on what the blob store supports. Meta accompanies
// Body when the store could describe the object.
type Download struct {
	URL  string
	Body io.ReadCloser
	Meta *ObjectMeta
}

// IsRedirect reports whether the caller should redirect to URL.
func (d *Download) IsRedirect() bool {
	return d.URL != ""
}

// User is a registry account.
type User struct {
	// ID is assigned by storage on first insert; zero means not persisted.
	ID                int64     `json:"id"`
	UserID            string    `json:"user_id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	PasswordSalt      string    `json:"-"`
	PasswordIntegrity string    `json:"-"`
	IP                string    `json:"ip"`
	IsPrivate         bool      `json:"is_private"`
	Scopes            []string  `json:"scopes"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TokenType distinguishes legacy tokens from granular access tokens.
type TokenType string

const (
	TokenTypeClassic  TokenType = "classic"
	TokenTypeGranular TokenType = "granular"
)

// Token is an access token owned by a user. UserID is a lookup key only; the
// owning user may no longer exist.
type Token struct {
	ID              int64      `json:"id"`
	TokenID         string     `json:"token_id"`
	TokenMark       string     `json:"token_mark"`
	TokenKey        string     `json:"-"`
	UserID          string     `json:"user_id"`
	CIDRWhitelist   []string   `json:"cidr_whitelist"`
	IsReadonly      bool       `json:"readonly"`
	IsAutomation    bool       `json:"automation"`
	Type            TokenType  `json:"type"`
	Name            string     `json:"name,omitempty"`
	Description     string     `json:"description,omitempty"`
	AllowedScopes   []string   `json:"allowed_scopes,omitempty"`
	AllowedPackages []string   `json:"allowed_packages,omitempty"`
	ExpiredAt       *time.Time `json:"expired_at,omitempty"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// WebauthnCredential is a registered WebAuthn authenticator. BrowserType is
// nil for credentials registered without browser information.
type WebauthnCredential struct {
	ID           int64     `json:"id"`
	WancID       string    `json:"wanc_id"`
	UserID       string    `json:"user_id"`
	CredentialID string    `json:"credential_id"`
	PublicKey    string    `json:"public_key"`
	BrowserType  *string   `json:"browser_type,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserAndToken is the result of resolving a token key to its owner.
type UserAndToken struct {
	User  *User
	Token *Token
}

// NewUser creates an unsaved user with a fresh domain id.
func NewUser(name, email string) *User {
	now := time.Now().UTC()
	return &User{
		UserID:    uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewToken creates an unsaved token for userID. The mark is the first six
// characters (runes) of the key, shown in token listings.
func NewToken(userID, tokenKey string, tokenType TokenType) *Token {
	now := time.Now().UTC()
	if tokenType == "" {
		tokenType = TokenTypeClassic
	}
	mark := tokenKey
	if runes := []rune(tokenKey); len(runes) > 6 {
		mark = string(runes[:6])
	}
	return &Token{
		TokenID:   uuid.NewString(),
		TokenMark: mark,
		TokenKey:  tokenKey,
		UserID:    userID,
		Type:      tokenType,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewWebauthnCredential creates an unsaved credential for userID.
func NewWebauthnCredential(userID, credentialID, publicKey string, browserType *string) *WebauthnCredential {
	now := time.Now().UTC()
	return &WebauthnCredential{
		WancID:       uuid.NewString(),
		UserID:       userID,
		CredentialID: credentialID,
		PublicKey:    publicKey,
		BrowserType:  browserType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
