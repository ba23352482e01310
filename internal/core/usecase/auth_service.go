package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/ports"
)

const defaultBootstrapKeyName = "bootstrap"

var ErrUnauthorized = errors.New("unauthorized")

// AuthService resolves API tokens to the key that mutations are attributed to.
type AuthService struct {
	keys ports.APIKeyRepository
}

func NewAuthService(keys ports.APIKeyRepository) *AuthService {
	return &AuthService{keys: keys}
}

// Authenticate returns the active key for token. Unknown, empty and
// deactivated tokens all yield ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.APIKey, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.APIKey{}, ErrUnauthorized
	}

	key, found, err := s.keys.FindByTokenHash(ctx, HashToken(token))
	if err != nil {
		return domain.APIKey{}, err
	}
	if !found || !key.Active {
		return domain.APIKey{}, ErrUnauthorized
	}
	return key, nil
}

// Bootstrap stores token as an active key named name, reactivating and
// renaming it when the token is already known.
func (s *AuthService) Bootstrap(ctx context.Context, token, name string) (domain.APIKey, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.APIKey{}, ErrUnauthorized
	}
	if name = strings.TrimSpace(name); name == "" {
		name = defaultBootstrapKeyName
	}
	return s.keys.Upsert(ctx, domain.APIKey{
		TokenHash: HashToken(token),
		Name:      name,
		Active:    true,
	})
}

func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}
