package gormdb

import (
	"context"
	"log/slog"

	"github.com/tendant/simple-registry/pkg/simpleregistry"
	"github.com/tendant/simple-registry/pkg/simpleregistry/repo/orm"
	"gorm.io/gorm"
)

// UserRepository implements simpleregistry.UserRepository with gorm
type UserRepository struct {
	users       *orm.Mapper[simpleregistry.User, UserModel]
	tokens      *orm.Mapper[simpleregistry.Token, TokenModel]
	credentials *orm.Mapper[simpleregistry.WebauthnCredential, WebauthnCredentialModel]
}

// NewUserRepository creates a gorm-backed user repository
func NewUserRepository(db *gorm.DB, logger *slog.Logger) simpleregistry.UserRepository {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "user_repository")

	return &UserRepository{
		users: orm.NewMapper[simpleregistry.User, UserModel]("user", orm.NewGormTable[UserModel](db), orm.Mapping[simpleregistry.User, UserModel]{
			EntityID: func(u *simpleregistry.User) int64 { return u.ID },
			ModelID:  func(m *UserModel) int64 { return m.ID },
			ToModel:  func(u *simpleregistry.User, m *UserModel) { m.fromDomain(u) },
			ToEntity: (*UserModel).toDomain,
		}, logger),
		tokens: orm.NewMapper[simpleregistry.Token, TokenModel]("token", orm.NewGormTable[TokenModel](db), orm.Mapping[simpleregistry.Token, TokenModel]{
			EntityID: func(t *simpleregistry.Token) int64 { return t.ID },
			ModelID:  func(m *TokenModel) int64 { return m.ID },
			ToModel:  func(t *simpleregistry.Token, m *TokenModel) { m.fromDomain(t) },
			ToEntity: (*TokenModel).toDomain,
		}, logger),
		credentials: orm.NewMapper[simpleregistry.WebauthnCredential, WebauthnCredentialModel]("webauthn_credential", orm.NewGormTable[WebauthnCredentialModel](db), orm.Mapping[simpleregistry.WebauthnCredential, WebauthnCredentialModel]{
			EntityID: func(c *simpleregistry.WebauthnCredential) int64 { return c.ID },
			ModelID:  func(m *WebauthnCredentialModel) int64 { return m.ID },
			ToModel:  func(c *simpleregistry.WebauthnCredential, m *WebauthnCredentialModel) { m.fromDomain(c) },
			ToEntity: (*WebauthnCredentialModel).toDomain,
		}, logger),
	}
}

// User operations

func (r *UserRepository) SaveUser(ctx context.Context, user *simpleregistry.User) (orm.SaveResult, error) {
	return r.users.Save(ctx, user)
}

func (r *UserRepository) FindUserByName(ctx context.Context, name string) (*simpleregistry.User, error) {
	return r.users.FindOne(ctx, orm.Where{"name": name})
}

func (r *UserRepository) FindUserByUserID(ctx context.Context, userID string) (*simpleregistry.User, error) {
	return r.users.FindOne(ctx, orm.Where{"user_id": userID})
}

// FindUserAndTokenByTokenKey resolves a token and its owner. It returns nil
// when either is missing.
func (r *UserRepository) FindUserAndTokenByTokenKey(ctx context.Context, tokenKey string) (*simpleregistry.UserAndToken, error) {
	token, err := r.FindTokenByTokenKey(ctx, tokenKey)
	if err != nil || token == nil {
		return nil, err
	}
	user, err := r.FindUserByUserID(ctx, token.UserID)
	if err != nil || user == nil {
		return nil, err
	}
	return &simpleregistry.UserAndToken{User: user, Token: token}, nil
}

// Token operations

func (r *UserRepository) SaveToken(ctx context.Context, token *simpleregistry.Token) (orm.SaveResult, error) {
	return r.tokens.Save(ctx, token)
}

func (r *UserRepository) FindTokenByTokenKey(ctx context.Context, tokenKey string) (*simpleregistry.Token, error) {
	return r.tokens.FindOne(ctx, orm.Where{"token_key": tokenKey})
}

func (r *UserRepository) ListTokens(ctx context.Context, userID string) ([]*simpleregistry.Token, error) {
	return r.tokens.Find(ctx, orm.Where{"user_id": userID})
}

func (r *UserRepository) RemoveToken(ctx context.Context, tokenID string) (int64, error) {
	return r.tokens.Remove(ctx, orm.Where{"token_id": tokenID})
}

// WebAuthn credential operations

func (r *UserRepository) SaveCredential(ctx context.Context, credential *simpleregistry.WebauthnCredential) (orm.SaveResult, error) {
	return r.credentials.Save(ctx, credential)
}

// FindCredentialByUserIDAndBrowserType matches browserType exactly: a nil
// browserType only finds credentials stored without one.
func (r *UserRepository) FindCredentialByUserIDAndBrowserType(ctx context.Context, userID string, browserType *string) (*simpleregistry.WebauthnCredential, error) {
	where := orm.Where{"user_id": userID, "browser_type": nil}
	if browserType != nil {
		where["browser_type"] = *browserType
	}
	return r.credentials.FindOne(ctx, where)
}

func (r *UserRepository) ListCredentials(ctx context.Context, userID string) ([]*simpleregistry.WebauthnCredential, error) {
	return r.credentials.Find(ctx, orm.Where{"user_id": userID})
}

func (r *UserRepository) RemoveCredential(ctx context.Context, wancID string) (int64, error) {
	return r.credentials.Remove(ctx, orm.Where{"wanc_id": wancID})
}
