package entitlement

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/afterword/vaultword/internal/common"
	"github.com/afterword/vaultword/internal/dbx"
	"github.com/afterword/vaultword/internal/logging"
	"github.com/afterword/vaultword/internal/server/models"
	"github.com/afterword/vaultword/internal/server/repositories/accounts"
	"github.com/afterword/vaultword/internal/server/repositories/repomanager"
)

const testEntitlement = "Vaultword Pro"

func datePtr(t time.Time) *time.Time { return &t }

func TestClassify(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	future := datePtr(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC))
	past := datePtr(time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name string
		sub  *Subscriber
		want string
	}{
		{
			name: "active lifetime outranks active pro",
			sub: &Subscriber{Entitlements: map[string]Entitlement{
				testEntitlement: {ExpiresDate: future, ProductIdentifier: "Lifetime-Bundle"},
			}},
			want: models.TierLifetime,
		},
		{
			name: "expired lifetime does not count",
			sub: &Subscriber{Entitlements: map[string]Entitlement{
				"old": {ExpiresDate: past, ProductIdentifier: "Lifetime-Bundle"},
			}},
			want: models.TierFree,
		},
		{
			name: "active named entitlement is pro",
			sub: &Subscriber{Entitlements: map[string]Entitlement{
				testEntitlement: {ExpiresDate: future, ProductIdentifier: "Monthly"},
			}},
			want: models.TierPro,
		},
		{
			name: "null expiry without lifetime product is pro not lifetime",
			sub: &Subscriber{Entitlements: map[string]Entitlement{
				testEntitlement: {ExpiresDate: nil, ProductIdentifier: "Monthly"},
			}},
			want: models.TierPro,
		},
		{
			name: "null expiry with lifetime product",
			sub: &Subscriber{Entitlements: map[string]Entitlement{
				"anything": {ExpiresDate: nil, ProductIdentifier: "com.app.lifetime"},
			}},
			want: models.TierLifetime,
		},
		{
			name: "mixed active lifetime and expired monthly",
			sub: &Subscriber{Entitlements: map[string]Entitlement{
				"a": {ExpiresDate: future, ProductIdentifier: "Lifetime-Bundle"},
				"b": {ExpiresDate: past, ProductIdentifier: "Monthly"},
			}},
			want: models.TierLifetime,
		},
		{
			name: "active unnamed entitlement is free",
			sub: &Subscriber{Entitlements: map[string]Entitlement{
				"other": {ExpiresDate: future, ProductIdentifier: "Monthly"},
			}},
			want: models.TierFree,
		},
		{
			name: "no entitlements",
			sub:  &Subscriber{Entitlements: map[string]Entitlement{}},
			want: models.TierFree,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.sub, testEntitlement, now); got != tc.want {
				t.Fatalf("Classify() = %q, want %q", got, tc.want)
			}
		})
	}
}

// -------- test fakes --------

type fakeBilling struct {
	sub *Subscriber
	err error
}

func (f *fakeBilling) GetSubscriber(ctx context.Context, accountID string) (*Subscriber, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

type fakeAccountsRepo struct {
	accounts.Repository
	setTiers []string
	setErr   error
}

func (f *fakeAccountsRepo) SetBillingTier(ctx context.Context, id, tier string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.setTiers = append(f.setTiers, tier)
	return nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	a *fakeAccountsRepo
}

func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository { return m.a }

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

// -------- tests --------

func TestResolve_PersistsThroughPrivilegedPath(t *testing.T) {
	future := datePtr(time.Now().Add(24 * time.Hour))
	repo := &fakeAccountsRepo{}
	s := NewService(nil, &fakeRepoManager{a: repo}, &fakeBilling{
		sub: &Subscriber{Entitlements: map[string]Entitlement{
			testEntitlement: {ExpiresDate: future, ProductIdentifier: "Monthly"},
		}},
	}, testEntitlement, testLogger())

	tier, err := s.Resolve(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if tier != models.TierPro {
		t.Fatalf("expected pro, got %q", tier)
	}
	if len(repo.setTiers) != 1 || repo.setTiers[0] != models.TierPro {
		t.Fatalf("tier not persisted: %v", repo.setTiers)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	repo := &fakeAccountsRepo{}
	s := NewService(nil, &fakeRepoManager{a: repo}, &fakeBilling{
		sub: &Subscriber{Entitlements: map[string]Entitlement{}},
	}, testEntitlement, testLogger())

	for i := 0; i < 2; i++ {
		tier, err := s.Resolve(context.Background(), "acct-1")
		if err != nil {
			t.Fatalf("Resolve run %d error: %v", i, err)
		}
		if tier != models.TierFree {
			t.Fatalf("expected free, got %q", tier)
		}
	}
}

func TestResolve_BillingFailurePropagates(t *testing.T) {
	repo := &fakeAccountsRepo{}
	s := NewService(nil, &fakeRepoManager{a: repo}, &fakeBilling{err: common.ErrUpstreamTimeout},
		testEntitlement, testLogger())

	_, err := s.Resolve(context.Background(), "acct-1")
	if !errors.Is(err, common.ErrUpstreamTimeout) {
		t.Fatalf("expected ErrUpstreamTimeout, got %v", err)
	}
	if len(repo.setTiers) != 0 {
		t.Fatalf("tier must not be persisted on billing failure")
	}
}
