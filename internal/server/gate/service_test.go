package gate

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/afterword/vaultword/internal/common"
	"github.com/afterword/vaultword/internal/cryptox"
	"github.com/afterword/vaultword/internal/dbx"
	"github.com/afterword/vaultword/internal/logging"
	"github.com/afterword/vaultword/internal/server/lifecycle"
	"github.com/afterword/vaultword/internal/server/models"
	"github.com/afterword/vaultword/internal/server/repositories/accounts"
	"github.com/afterword/vaultword/internal/server/repositories/entries"
	"github.com/afterword/vaultword/internal/server/repositories/repomanager"
	"github.com/afterword/vaultword/internal/server/repositories/tombstones"
)

const testSecret = "test-server-secret"

// -------- test fakes --------

type fakeVerifier struct {
	accountID string
	err       error
}

func (f *fakeVerifier) VerifyCredential(ctx context.Context, token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if token == "" {
		return "", common.ErrUnauthorized
	}
	return f.accountID, nil
}

type fakeAccountsRepo struct {
	accounts.Repository
	account *models.Account
	err     error
}

func (f *fakeAccountsRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.account, nil
}

type fakeEntriesRepo struct {
	entries.Repository
	entry *models.VaultEntry
	err   error
}

func (f *fakeEntriesRepo) GetByID(ctx context.Context, id string) (*models.VaultEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.entry, nil
}

type fakeTombstonesRepo struct {
	tombstones.Repository
	tombstone *models.Tombstone
}

func (f *fakeTombstonesRepo) GetByEntryID(ctx context.Context, id string) (*models.Tombstone, error) {
	if f.tombstone == nil {
		return nil, common.ErrNotFound
	}
	return f.tombstone, nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	a *fakeAccountsRepo
	e *fakeEntriesRepo
	t *fakeTombstonesRepo
}

func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository { return m.a }
func (m *fakeRepoManager) Entries(dbx.DBTX) entries.Repository   { return m.e }
func (m *fakeRepoManager) Tombstones(dbx.DBTX) tombstones.Repository {
	if m.t == nil {
		return &fakeTombstonesRepo{}
	}
	return m.t
}

type fakeBlobStore struct {
	data map[string][]byte
	gets int
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, data []byte) error {
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	f.data[key] = data
	return nil
}

func (f *fakeBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.gets++
	if d, ok := f.data[key]; ok {
		return d, nil
	}
	return nil, common.ErrUpstream
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	delete(f.data, key)
	return nil
}

// -------- helpers --------

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

// provisionAccount returns an account whose wrapped key opens under the
// test secret, plus the raw recipient key for computing proofs.
func provisionAccount(t *testing.T, id string) (*models.Account, cryptox.RecipientKey) {
	t.Helper()
	rk := cryptox.NewRecipientKey()
	wrapped, err := cryptox.WrapRecipientKey(rk, cryptox.DeriveServerKey(testSecret))
	if err != nil {
		t.Fatalf("wrap error: %v", err)
	}
	return &models.Account{ID: id, DisplayName: "Alice", WrappedKey: wrapped}, rk
}

func newGate(t *testing.T, m *fakeRepoManager, v *fakeVerifier, blobs *fakeBlobStore) *Service {
	t.Helper()
	if blobs == nil {
		blobs = &fakeBlobStore{}
	}
	lc := lifecycle.NewService(nil, m)
	s, err := NewService(nil, m, v, lc, blobs, testSecret, testLogger())
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	return s
}

// -------- tests --------

func TestNewService_EmptySecretIsMisconfiguration(t *testing.T) {
	m := &fakeRepoManager{a: &fakeAccountsRepo{}, e: &fakeEntriesRepo{}}
	_, err := NewService(nil, m, &fakeVerifier{}, lifecycle.NewService(nil, m), &fakeBlobStore{}, "", testLogger())
	if !errors.Is(err, common.ErrMisconfiguration) {
		t.Fatalf("expected ErrMisconfiguration, got %v", err)
	}
}

func TestDecryptText_EndToEnd(t *testing.T) {
	account, rk := provisionAccount(t, "acct-1")
	m := &fakeRepoManager{a: &fakeAccountsRepo{account: account}, e: &fakeEntriesRepo{}}
	s := newGate(t, m, &fakeVerifier{accountID: "acct-1"}, nil)

	ctx := context.Background()
	ciphertext, err := s.EncryptText(ctx, "the words I left behind")
	if err != nil {
		t.Fatalf("encrypt error: %v", err)
	}

	proof := cryptox.ComputeProof(ciphertext, rk)
	got, err := s.DecryptText(ctx, "valid-token", "", ciphertext, proof)
	if err != nil {
		t.Fatalf("decrypt error: %v", err)
	}
	if got != "the words I left behind" {
		t.Fatalf("unexpected plaintext: %q", got)
	}
}

func TestDecryptText_WrongKeyProofIsForbidden(t *testing.T) {
	account, _ := provisionAccount(t, "acct-1")
	m := &fakeRepoManager{a: &fakeAccountsRepo{account: account}, e: &fakeEntriesRepo{}}
	s := newGate(t, m, &fakeVerifier{accountID: "acct-1"}, nil)

	ctx := context.Background()
	ciphertext, err := s.EncryptText(ctx, "secret")
	if err != nil {
		t.Fatalf("encrypt error: %v", err)
	}

	// Proof under a random key the account does not hold.
	proof := cryptox.ComputeProof(ciphertext, cryptox.NewRecipientKey())
	_, err = s.DecryptText(ctx, "valid-token", "", ciphertext, proof)
	if !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDecryptText_ProofBoundToCiphertext(t *testing.T) {
	account, rk := provisionAccount(t, "acct-1")
	m := &fakeRepoManager{a: &fakeAccountsRepo{account: account}, e: &fakeEntriesRepo{}}
	s := newGate(t, m, &fakeVerifier{accountID: "acct-1"}, nil)

	ctx := context.Background()
	c1, _ := s.EncryptText(ctx, "first message")
	c2, _ := s.EncryptText(ctx, "second message")

	// A proof captured for c1 must not authorize c2.
	proof := cryptox.ComputeProof(c1, rk)
	_, err := s.DecryptText(ctx, "valid-token", "", c2, proof)
	if !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestDecryptText_MissingCredentialIsUnauthorized(t *testing.T) {
	account, rk := provisionAccount(t, "acct-1")
	m := &fakeRepoManager{a: &fakeAccountsRepo{account: account}, e: &fakeEntriesRepo{}}
	s := newGate(t, m, &fakeVerifier{accountID: "acct-1"}, nil)

	ctx := context.Background()
	ciphertext, _ := s.EncryptText(ctx, "secret")
	proof := cryptox.ComputeProof(ciphertext, rk)

	_, err := s.DecryptText(ctx, "", "", ciphertext, proof)
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDecryptText_MissingKeyRecordMatchesProofMismatch(t *testing.T) {
	// Missing key record and proof mismatch must be the identical signal.
	m := &fakeRepoManager{a: &fakeAccountsRepo{err: common.ErrNotFound}, e: &fakeEntriesRepo{}}
	s := newGate(t, m, &fakeVerifier{accountID: "ghost"}, nil)

	ctx := context.Background()
	ciphertext, _ := s.EncryptText(ctx, "secret")

	_, errNoRecord := s.DecryptText(ctx, "valid-token", "", ciphertext, "some-proof")
	if !errors.Is(errNoRecord, common.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for missing record, got %v", errNoRecord)
	}

	account, _ := provisionAccount(t, "acct-1")
	m2 := &fakeRepoManager{a: &fakeAccountsRepo{account: account}, e: &fakeEntriesRepo{}}
	s2 := newGate(t, m2, &fakeVerifier{accountID: "acct-1"}, nil)
	_, errBadProof := s2.DecryptText(ctx, "valid-token", "", ciphertext, "some-proof")
	if !errors.Is(errBadProof, common.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for bad proof, got %v", errBadProof)
	}

	if errNoRecord.Error() != errBadProof.Error() {
		t.Fatalf("signals differ: %q vs %q", errNoRecord.Error(), errBadProof.Error())
	}
}

func TestDecryptText_UpstreamIdentityFailurePropagates(t *testing.T) {
	account, rk := provisionAccount(t, "acct-1")
	m := &fakeRepoManager{a: &fakeAccountsRepo{account: account}, e: &fakeEntriesRepo{}}
	s := newGate(t, m, &fakeVerifier{err: common.ErrUpstreamTimeout}, nil)

	ctx := context.Background()
	ciphertext, _ := s.EncryptText(ctx, "secret")
	proof := cryptox.ComputeProof(ciphertext, rk)

	_, err := s.DecryptText(ctx, "token", "", ciphertext, proof)
	if !errors.Is(err, common.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
}

func TestDecryptText_LifecycleShortCircuits(t *testing.T) {
	account, rk := provisionAccount(t, "acct-1")
	past := time.Now().Add(-time.Hour)

	m := &fakeRepoManager{
		a: &fakeAccountsRepo{account: account},
		e: &fakeEntriesRepo{entry: &models.VaultEntry{
			ID: "e-1", OwnerID: "acct-1",
			DeliveryStatus: models.DeliverySent,
			ExpiresAt:      &past,
		}},
	}
	s := newGate(t, m, &fakeVerifier{accountID: "acct-1"}, nil)

	ctx := context.Background()
	ciphertext, _ := s.EncryptText(ctx, "secret")
	proof := cryptox.ComputeProof(ciphertext, rk)

	// Even a perfectly valid proof cannot open an expired entry.
	_, err := s.DecryptText(ctx, "valid-token", "e-1", ciphertext, proof)
	if !errors.Is(err, common.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for expired entry, got %v", err)
	}
}

func TestDecryptBytes_FromBlobPath(t *testing.T) {
	account, rk := provisionAccount(t, "acct-1")
	m := &fakeRepoManager{a: &fakeAccountsRepo{account: account}, e: &fakeEntriesRepo{}}
	blobs := &fakeBlobStore{}
	s := newGate(t, m, &fakeVerifier{accountID: "acct-1"}, blobs)

	ctx := context.Background()
	audio := []byte{0x00, 0x01, 0x02, 0xff}
	ciphertext, err := s.EncryptBytes(ctx, audio)
	if err != nil {
		t.Fatalf("encrypt error: %v", err)
	}
	if err := blobs.Put(ctx, "vault/2026/03/07/abc", []byte(ciphertext)); err != nil {
		t.Fatalf("blob put error: %v", err)
	}

	proof := cryptox.ComputeProof(ciphertext, rk)
	got, err := s.DecryptBytes(ctx, "valid-token", "", "blob:vault/2026/03/07/abc", proof)
	if err != nil {
		t.Fatalf("decrypt error: %v", err)
	}
	if string(got) != string(audio) {
		t.Fatalf("unexpected payload: %v", got)
	}
}

func TestDecryptText_MalformedCiphertextIsFormatError(t *testing.T) {
	account, rk := provisionAccount(t, "acct-1")
	m := &fakeRepoManager{a: &fakeAccountsRepo{account: account}, e: &fakeEntriesRepo{}}
	s := newGate(t, m, &fakeVerifier{accountID: "acct-1"}, nil)

	malformed := "only.two"
	proof := cryptox.ComputeProof(malformed, rk)
	_, err := s.DecryptText(context.Background(), "valid-token", "", malformed, proof)
	if !errors.Is(err, common.ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestDecryptBytes_SweptAndUnsweptExpiredIndistinguishable(t *testing.T) {
	account, rk := provisionAccount(t, "acct-1")
	sentAt := time.Now().Add(-31 * 24 * time.Hour)
	expired := sentAt.Add(30 * 24 * time.Hour)
	ctx := context.Background()

	// One envelope and proof reused for both reads.
	seed := newGate(t, &fakeRepoManager{a: &fakeAccountsRepo{account: account}, e: &fakeEntriesRepo{}},
		&fakeVerifier{accountID: "acct-1"}, nil)
	envelope, err := seed.EncryptBytes(ctx, []byte{0x0a, 0x0b})
	if err != nil {
		t.Fatalf("encrypt error: %v", err)
	}
	proof := cryptox.ComputeProof(envelope, rk)

	// Expired entry still present, blob still stored.
	unsweptBlobs := &fakeBlobStore{}
	if err := unsweptBlobs.Put(ctx, "vault/2026/01/01/a", []byte(envelope)); err != nil {
		t.Fatalf("blob put error: %v", err)
	}
	unswept := newGate(t, &fakeRepoManager{
		a: &fakeAccountsRepo{account: account},
		e: &fakeEntriesRepo{entry: &models.VaultEntry{
			ID: "e-1", OwnerID: "acct-1",
			DeliveryStatus: models.DeliverySent,
			AudioPath:      "vault/2026/01/01/a",
			SentAt:         &sentAt,
			ExpiresAt:      &expired,
		}},
	}, &fakeVerifier{accountID: "acct-1"}, unsweptBlobs)

	// Row erased to a tombstone, blob gone.
	sweptBlobs := &fakeBlobStore{}
	swept := newGate(t, &fakeRepoManager{
		a: &fakeAccountsRepo{account: account},
		e: &fakeEntriesRepo{err: common.ErrNotFound},
		t: &fakeTombstonesRepo{tombstone: &models.Tombstone{
			EntryID: "e-1", OwnerID: "acct-1", SenderName: "Alice",
			SentAt: &sentAt, ExpiredAt: expired,
		}},
	}, &fakeVerifier{accountID: "acct-1"}, sweptBlobs)

	_, errUnswept := unswept.DecryptBytes(ctx, "valid-token", "e-1", "blob:vault/2026/01/01/a", proof)
	_, errSwept := swept.DecryptBytes(ctx, "valid-token", "e-1", "blob:vault/2026/01/01/a", proof)

	if !errors.Is(errUnswept, common.ErrForbidden) {
		t.Fatalf("unswept expired: expected ErrForbidden, got %v", errUnswept)
	}
	if !errors.Is(errSwept, common.ErrForbidden) {
		t.Fatalf("swept expired: expected ErrForbidden, got %v", errSwept)
	}
	if errUnswept.Error() != errSwept.Error() {
		t.Fatalf("signals differ: %q vs %q", errUnswept.Error(), errSwept.Error())
	}
	if unsweptBlobs.gets != 0 || sweptBlobs.gets != 0 {
		t.Fatalf("expired reads must not reach the blob store: %d/%d fetches",
			unsweptBlobs.gets, sweptBlobs.gets)
	}
}

func TestDecryptBytes_NoBlobFetchWithoutCredential(t *testing.T) {
	account, rk := provisionAccount(t, "acct-1")
	blobs := &fakeBlobStore{}
	m := &fakeRepoManager{a: &fakeAccountsRepo{account: account}, e: &fakeEntriesRepo{}}
	s := newGate(t, m, &fakeVerifier{accountID: "acct-1"}, blobs)

	ctx := context.Background()
	envelope, _ := s.EncryptBytes(ctx, []byte{0x01})
	if err := blobs.Put(ctx, "vault/2026/01/01/b", []byte(envelope)); err != nil {
		t.Fatalf("blob put error: %v", err)
	}
	proof := cryptox.ComputeProof(envelope, rk)

	_, err := s.DecryptBytes(ctx, "", "", "blob:vault/2026/01/01/b", proof)
	if !errors.Is(err, common.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if blobs.gets != 0 {
		t.Fatalf("unverified caller reached the blob store: %d fetches", blobs.gets)
	}
}
