package entitlement

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/afterword/vaultword/internal/logging"
	"github.com/afterword/vaultword/internal/server/models"
	"github.com/afterword/vaultword/internal/server/repositories/repomanager"
)

// Service resolves and persists billing tiers. The persistence path is
// the privileged SetBillingTier repository operation; no caller
// credential can reach it directly, so a modified client cannot
// self-assign a paid tier.
type Service struct {
	db              *sql.DB
	repomanager     repomanager.RepositoryManager
	billing         BillingClient
	entitlementName string
	logger          logging.Logger
	now             func() time.Time
}

func NewService(db *sql.DB, m repomanager.RepositoryManager, billing BillingClient,
	entitlementName string, logger logging.Logger) *Service {
	return &Service{
		db:              db,
		repomanager:     m,
		billing:         billing,
		entitlementName: entitlementName,
		logger:          logger.With("module", "entitlement"),
		now:             time.Now,
	}
}

// Classify maps a subscriber record to a tier.
//
// Only entitlements with no expiry or an expiry in the future count as
// active. The lifetime classification additionally requires a product
// identifier match: a bare null expiry may just be upstream omission on
// a subscription, so it is not trusted alone as the lifetime signal.
func Classify(sub *Subscriber, entitlementName string, now time.Time) string {
	isLifetime := false
	hasEntitlement := false

	for name, ent := range sub.Entitlements {
		if ent.ExpiresDate != nil && !ent.ExpiresDate.After(now) {
			continue
		}
		if strings.Contains(strings.ToLower(ent.ProductIdentifier), "lifetime") {
			isLifetime = true
		}
		if name == entitlementName {
			hasEntitlement = true
		}
	}

	switch {
	case isLifetime:
		return models.TierLifetime
	case hasEntitlement:
		return models.TierPro
	default:
		return models.TierFree
	}
}

// Resolve queries the billing API for the verified account, classifies
// the tier, and persists it. Resolving the same tier twice is a no-op
// update, so clients may re-trigger verification freely.
func (s *Service) Resolve(ctx context.Context, accountID string) (string, error) {
	sub, err := s.billing.GetSubscriber(ctx, accountID)
	if err != nil {
		return "", err
	}

	tier := Classify(sub, s.entitlementName, s.now())

	if err := s.repomanager.Accounts(s.db).SetBillingTier(ctx, accountID, tier); err != nil {
		return "", err
	}

	s.logger.Info(ctx, "billing tier resolved", "account", accountID, "tier", tier)
	return tier, nil
}
