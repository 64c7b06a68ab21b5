package ports

import (
	"context"

	"github.com/bnema/notebooklm-cli/internal/domain"
)

// CredentialStore persists the credential bundle between runs. Load returns
// domain.ErrCredentialsNotFound when no usable bundle exists on disk.
type CredentialStore interface {
	Load(ctx context.Context) (domain.Credentials, error)
	Save(ctx context.Context, creds domain.Credentials) error
	Delete(ctx context.Context) error
}
