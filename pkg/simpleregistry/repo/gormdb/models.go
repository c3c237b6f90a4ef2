package gormdb

import (
	"time"

	"github.com/tendant/simple-registry/pkg/simpleregistry"
)

// UserModel is the users table row
type UserModel struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	UserID            string    `gorm:"not null;uniqueIndex;type:varchar(36)"`
	Name              string    `gorm:"not null;uniqueIndex;type:varchar(100)"`
	Email             string    `gorm:"not null;type:varchar(400)"`
	PasswordSalt      string    `gorm:"not null;type:varchar(100)"`
	PasswordIntegrity string    `gorm:"not null;type:varchar(512)"`
	IP                string    `gorm:"not null;type:varchar(100)"`
	IsPrivate         bool      `gorm:"not null"`
	Scopes            []string  `gorm:"type:text;serializer:json"`
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) toDomain() *simpleregistry.User {
	return &simpleregistry.User{
		ID:                m.ID,
		UserID:            m.UserID,
		Name:              m.Name,
		Email:             m.Email,
		PasswordSalt:      m.PasswordSalt,
		PasswordIntegrity: m.PasswordIntegrity,
		IP:                m.IP,
		IsPrivate:         m.IsPrivate,
		Scopes:            m.Scopes,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func (m *UserModel) fromDomain(u *simpleregistry.User) {
	m.UserID = u.UserID
	m.Name = u.Name
	m.Email = u.Email
	m.PasswordSalt = u.PasswordSalt
	m.PasswordIntegrity = u.PasswordIntegrity
	m.IP = u.IP
	m.IsPrivate = u.IsPrivate
	m.Scopes = u.Scopes
	m.CreatedAt = u.CreatedAt
	m.UpdatedAt = u.UpdatedAt
}

// TokenModel is the tokens table row
type TokenModel struct {
	ID              int64      `gorm:"primaryKey;autoIncrement"`
	TokenID         string     `gorm:"not null;uniqueIndex;type:varchar(36)"`
	TokenMark       string     `gorm:"not null;type:varchar(20)"`
	TokenKey        string     `gorm:"not null;uniqueIndex;type:varchar(200)"`
	UserID          string     `gorm:"not null;index;type:varchar(36)"`
	CIDRWhitelist   []string   `gorm:"column:cidr_whitelist;type:text;serializer:json"`
	IsReadonly      bool       `gorm:"not null"`
	IsAutomation    bool       `gorm:"not null"`
	Type            string     `gorm:"type:varchar(20)"`
	Name            string     `gorm:"type:varchar(255)"`
	Description     string     `gorm:"type:varchar(255)"`
	AllowedScopes   []string   `gorm:"type:text;serializer:json"`
	AllowedPackages []string   `gorm:"type:text;serializer:json"`
	ExpiredAt       *time.Time
	LastUsedAt      *time.Time
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

func (TokenModel) TableName() string {
	return "tokens"
}

func (m *TokenModel) toDomain() *simpleregistry.Token {
	return &simpleregistry.Token{
		ID:              m.ID,
		TokenID:         m.TokenID,
		TokenMark:       m.TokenMark,
		TokenKey:        m.TokenKey,
		UserID:          m.UserID,
		CIDRWhitelist:   m.CIDRWhitelist,
		IsReadonly:      m.IsReadonly,
		IsAutomation:    m.IsAutomation,
		Type:            simpleregistry.TokenType(m.Type),
		Name:            m.Name,
		Description:     m.Description,
		AllowedScopes:   m.AllowedScopes,
		AllowedPackages: m.AllowedPackages,
		ExpiredAt:       m.ExpiredAt,
		LastUsedAt:      m.LastUsedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func (m *TokenModel) fromDomain(t *simpleregistry.Token) {
	m.TokenID = t.TokenID
	m.TokenMark = t.TokenMark
	m.TokenKey = t.TokenKey
	m.UserID = t.UserID
	m.CIDRWhitelist = t.CIDRWhitelist
	m.IsReadonly = t.IsReadonly
	m.IsAutomation = t.IsAutomation
	m.Type = string(t.Type)
	m.Name = t.Name
	m.Description = t.Description
	m.AllowedScopes = t.AllowedScopes
	m.AllowedPackages = t.AllowedPackages
	m.ExpiredAt = t.ExpiredAt
	m.LastUsedAt = t.LastUsedAt
	m.CreatedAt = t.CreatedAt
	m.UpdatedAt = t.UpdatedAt
}

// WebauthnCredentialModel is the webauthn_credentials table row
type WebauthnCredentialModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	WancID       string    `gorm:"not null;uniqueIndex;type:varchar(36)"`
	UserID       string    `gorm:"not null;index:idx_wanc_user_browser;type:varchar(36)"`
	CredentialID string    `gorm:"not null;type:varchar(200)"`
	PublicKey    string    `gorm:"not null;type:varchar(512)"`
	BrowserType  *string   `gorm:"index:idx_wanc_user_browser;type:varchar(20)"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (WebauthnCredentialModel) TableName() string {
	return "webauthn_credentials"
}

func (m *WebauthnCredentialModel) toDomain() *simpleregistry.WebauthnCredential {
	return &simpleregistry.WebauthnCredential{
		ID:           m.ID,
		WancID:       m.WancID,
		UserID:       m.UserID,
		CredentialID: m.CredentialID,
		PublicKey:    m.PublicKey,
		BrowserType:  m.BrowserType,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func (m *WebauthnCredentialModel) fromDomain(c *simpleregistry.WebauthnCredential) {
	m.WancID = c.WancID
	m.UserID = c.UserID
	m.CredentialID = c.CredentialID
	m.PublicKey = c.PublicKey
	m.BrowserType = c.BrowserType
	m.CreatedAt = c.CreatedAt
	m.UpdatedAt = c.UpdatedAt
}
