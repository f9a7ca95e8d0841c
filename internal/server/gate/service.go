// Package gate implements the decrypt authorization sequence. Every
// decrypt operation passes through the full check chain; any step
// failing short-circuits the rest.
package gate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/afterword/vaultword/internal/common"
	"github.com/afterword/vaultword/internal/cryptox"
	"github.com/afterword/vaultword/internal/logging"
	"github.com/afterword/vaultword/internal/server/blob"
	"github.com/afterword/vaultword/internal/server/identity"
	"github.com/afterword/vaultword/internal/server/lifecycle"
	"github.com/afterword/vaultword/internal/server/repositories/repomanager"
)

// Service holds the collaborators of the authorization gate. It keeps
// no per-request state; the server key is re-derived from the secret on
// every invocation rather than cached.
type Service struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	verifier     identity.Verifier
	lifecycle    *lifecycle.Service
	blobs        blob.Store
	serverSecret string
	logger       logging.Logger
}

func NewService(
	db *sql.DB,
	m repomanager.RepositoryManager,
	verifier identity.Verifier,
	lc *lifecycle.Service,
	blobs blob.Store,
	serverSecret string,
	logger logging.Logger,
) (*Service, error) {
	if serverSecret == "" {
		return nil, fmt.Errorf("server secret is empty: %w", common.ErrMisconfiguration)
	}
	return &Service{
		db:           db,
		repomanager:  m,
		verifier:     verifier,
		lifecycle:    lc,
		blobs:        blobs,
		serverSecret: serverSecret,
		logger:       logger.With("module", "gate"),
	}, nil
}

// EncryptText seals a UTF-8 plaintext under the server key.
func (s *Service) EncryptText(_ context.Context, plaintext string) (string, error) {
	return cryptox.Encrypt([]byte(plaintext), s.serverKey())
}

// EncryptBytes seals a raw payload under the server key.
func (s *Service) EncryptBytes(_ context.Context, data []byte) (string, error) {
	return cryptox.Encrypt(data, s.serverKey())
}

// EncryptBytesStored seals a raw payload and puts the resulting
// envelope in the blob store under a fresh date-partitioned key.
// Returns the blob path; the cleartext never reaches the store.
func (s *Service) EncryptBytesStored(ctx context.Context, data []byte) (string, error) {
	envelope, err := cryptox.Encrypt(data, s.serverKey())
	if err != nil {
		return "", err
	}
	path := blob.StorageKey(time.Now())
	if err := s.blobs.Put(ctx, path, []byte(envelope)); err != nil {
		return "", err
	}
	return path, nil
}

// DecryptText authorizes and opens a text envelope. The optional
// entryID ties the request to a vault entry whose lifecycle state is
// consulted before any storage or key work.
func (s *Service) DecryptText(ctx context.Context, token, entryID, ciphertext, proof string) (string, error) {
	clear, err := s.DecryptBytes(ctx, token, entryID, ciphertext, proof)
	if err != nil {
		return "", err
	}
	return string(clear), nil
}

// DecryptBytes runs the full authorization sequence and, only on
// success, releases plaintext. Ciphertext may be passed inline or as a
// blob-store path prefixed with "blob:"; the stored bytes are an
// envelope string either way.
//
// The blob fetch happens only after the credential has verified and the
// entry's lifecycle has allowed the read. An expired entry is refused
// before storage is touched, so whether the sweep already erased its
// blob never shows in the response, and unverified callers cannot
// trigger storage fetches.
func (s *Service) DecryptBytes(ctx context.Context, token, entryID, ciphertext, proof string) ([]byte, error) {
	accountID, err := s.verifyCredential(ctx, token)
	if err != nil {
		return nil, err
	}

	if entryID != "" {
		if err := s.checkLifecycle(ctx, entryID); err != nil {
			return nil, err
		}
	}

	resolved, err := s.resolveCiphertext(ctx, ciphertext)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, accountID, resolved, proof); err != nil {
		return nil, err
	}

	return cryptox.Decrypt(resolved, s.serverKey())
}

// serverKey derives the process-wide key for this invocation.
func (s *Service) serverKey() cryptox.Key {
	return cryptox.DeriveServerKey(s.serverSecret)
}

// BlobPathPrefix marks a ciphertext argument that names a stored blob
// instead of carrying the envelope inline.
const BlobPathPrefix = "blob:"

func (s *Service) resolveCiphertext(ctx context.Context, ciphertext string) (string, error) {
	path, ok := strings.CutPrefix(ciphertext, BlobPathPrefix)
	if !ok {
		return ciphertext, nil
	}
	data, err := s.blobs.Get(ctx, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Service) checkLifecycle(ctx context.Context, entryID string) error {
	status, err := s.lifecycle.Check(ctx, entryID)
	if err != nil {
		return err
	}
	if status.State != lifecycle.StateAvailable {
		// Expired, pending and unknown entries all refuse decryption
		// with the same signal.
		return common.ErrForbidden
	}
	return nil
}

// verifyCredential resolves the bearer credential to an account id.
// Identity-endpoint outages propagate; any other failure is
// ErrUnauthorized.
func (s *Service) verifyCredential(ctx context.Context, token string) (string, error) {
	accountID, err := s.verifier.VerifyCredential(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrUpstream) || errors.Is(err, common.ErrUpstreamTimeout) {
			return "", err
		}
		return "", common.ErrUnauthorized
	}
	return accountID, nil
}

// authorize is the mandatory post-credential check sequence. Every
// failure collapses to ErrForbidden so the response does not reveal
// whether an account exists or holds a key.
func (s *Service) authorize(ctx context.Context, accountID, ciphertext, proof string) error {
	account, err := s.repomanager.Accounts(s.db).GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.ErrForbidden
		}
		return err
	}
	if account.WrappedKey == "" {
		return common.ErrForbidden
	}

	recipientKey, err := cryptox.UnwrapRecipientKey(account.WrappedKey, s.serverKey())
	if err != nil {
		// A wrapped key that fails to open under the current server key
		// is a provisioning problem; the caller still only sees Forbidden.
		s.logger.Error(ctx, "failed to unwrap recipient key", "account", accountID, "error", err.Error())
		return common.ErrForbidden
	}
	defer common.WipeByteArray(recipientKey)

	if !cryptox.VerifyProof(ciphertext, recipientKey, proof) {
		return common.ErrForbidden
	}

	return nil
}
