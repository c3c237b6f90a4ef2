package simpleregistry

import (
	"context"
	"io"
	"time"

	"github.com/tendant/simple-registry/pkg/simpleregistry/repo/orm"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload writes content at objectKey, replacing any existing object
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download opens the object; returns ErrObjectNotFound when it does not exist
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the object; returns ErrObjectNotFound when it does not exist
	Delete(ctx context.Context, objectKey string) error

	// GetDownloadURL returns a URL for downloading content, or
	// ErrDirectDownloadRequired when the backend can only stream
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// VersionLookup resolves a published package version to its dists.
type VersionLookup interface {
	// FindPackageVersion returns nil, nil when the version does not exist
	FindPackageVersion(ctx context.Context, packageID, version string) (*PackageVersion, error)
}

// UserRepository persists users, tokens and WebAuthn credentials.
//
// Save methods insert when the entity has no ID and update the stored record
// otherwise. Updating a record that no longer exists is skipped without error
// and reported as orm.SaveSkippedMissing. Find methods return nil, nil when
// nothing matches.
type UserRepository interface {
	SaveUser(ctx context.Context, user *User) (orm.SaveResult, error)
	FindUserByName(ctx context.Context, name string) (*User, error)
	FindUserByUserID(ctx context.Context, userID string) (*User, error)
	FindUserAndTokenByTokenKey(ctx context.Context, tokenKey string) (*UserAndToken, error)

	SaveToken(ctx context.Context, token *Token) (orm.SaveResult, error)
	FindTokenByTokenKey(ctx context.Context, tokenKey string) (*Token, error)
	ListTokens(ctx context.Context, userID string) ([]*Token, error)
	RemoveToken(ctx context.Context, tokenID string) (int64, error)

	SaveCredential(ctx context.Context, credential *WebauthnCredential) (orm.SaveResult, error)
	FindCredentialByUserIDAndBrowserType(ctx context.Context, userID string, browserType *string) (*WebauthnCredential, error)
	ListCredentials(ctx context.Context, userID string) ([]*WebauthnCredential, error)
	RemoveCredential(ctx context.Context, wancID string) (int64, error)
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}
