package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jengeka/bingwa-sokoni/internal/config"
	"github.com/Jengeka/bingwa-sokoni/internal/models"
	"github.com/Jengeka/bingwa-sokoni/internal/repositories"
	"github.com/Jengeka/bingwa-sokoni/pkg/notifier"
	"github.com/shopspring/decimal"
)

// Compile-time check to ensure CallbackServiceImpl implements CallbackService
var _ CallbackService = (*CallbackServiceImpl)(nil)

// CallbackOutcome is the gateway's reported result for a purchase.
type CallbackOutcome string

const (
	OutcomeSuccess CallbackOutcome = "success"
	OutcomeFailure CallbackOutcome = "failure"
)

// CallbackResult is what the callback endpoint reports back. Applied is true
// only when this delivery confirmed the request; duplicates and unknown
// references acknowledge without applying anything.
type CallbackResult struct {
	Applied   bool `json:"applied"`
	Duplicate bool `json:"duplicate"`
	Points    int  `json:"points,omitempty"`
	CanRedeem bool `json:"canRedeem"`
}

type CallbackServiceImpl struct {
	accountRepo  repositories.AccountRepository
	purchaseRepo repositories.PurchaseRepository
	notifier     notifier.Notifier
	loyalty      config.LoyaltyConfig
	locks        keyedLocks
}

func NewCallbackService(accountRepo repositories.AccountRepository, purchaseRepo repositories.PurchaseRepository, n notifier.Notifier, cfg *config.Config) *CallbackServiceImpl {
	return &CallbackServiceImpl{
		accountRepo:  accountRepo,
		purchaseRepo: purchaseRepo,
		notifier:     n,
		loyalty:      cfg.Loyalty,
	}
}

// HandleCallback matches a gateway callback to its pending purchase request
// and applies the ledger effect at most once, no matter how many times the
// gateway delivers it.
func (s *CallbackServiceImpl) HandleCallback(ctx context.Context, reference string, outcome CallbackOutcome, reason string) (*CallbackResult, error) {
	unlock := s.locks.lock(reference)
	defer unlock()

	request, err := s.purchaseRepo.FindByIdempotencyKey(ctx, reference)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Gateway misconfiguration or a replay of an unrelated event.
			// Acknowledge and drop.
			slog.Warn("Callback for unknown reference dropped", "reference", reference, "outcome", outcome)
			return &CallbackResult{}, nil
		}
		return nil, fmt.Errorf("failed to look up purchase request: %w", err)
	}

	if request.State.Terminal() {
		slog.Info("Duplicate callback acknowledged", "reference", reference, "state", request.State)
		return &CallbackResult{Duplicate: true}, nil
	}

	if outcome != OutcomeSuccess {
		changed, err := s.purchaseRepo.TransitionState(ctx, reference, request.State, models.PurchaseFailed, reason)
		if err != nil {
			return nil, fmt.Errorf("failed to mark purchase as failed: %w", err)
		}
		if changed {
			slog.Info("Purchase failed at gateway", "reference", reference, "reason", reason)
		}
		return &CallbackResult{Applied: changed}, nil
	}

	updated, err := s.applyCredit(ctx, request)
	if err != nil {
		// The request stays non-terminal, so a redelivered callback or the
		// reconciliation sweep can complete it later.
		return nil, fmt.Errorf("failed to apply ledger credit: %w", err)
	}

	if err := s.confirmRequest(ctx, reference); err != nil {
		return nil, err
	}

	canRedeem := updated.Points >= s.loyalty.RedeemThreshold
	slog.Info("Purchase confirmed",
		"reference", reference,
		"accountId", request.AccountID.Hex(),
		"points", updated.Points,
		"canRedeem", canRedeem,
	)

	s.notify(request, updated.Points)

	return &CallbackResult{Applied: true, Points: updated.Points, CanRedeem: canRedeem}, nil
}

// confirmAttempts bounds how often confirmRequest retries the conditional
// Confirmed write against freshly read state.
const confirmAttempts = 5

// confirmRequest moves the request to Confirmed once the ledger credit has
// committed. The orchestrator's Created->GatewayAccepted write can land
// between the reconciler's lookup and this transition, so a lost conditional
// write re-reads the current state and tries again instead of acknowledging
// with the request stranded non-terminal.
func (s *CallbackServiceImpl) confirmRequest(ctx context.Context, reference string) error {
	for attempt := 0; attempt < confirmAttempts; attempt++ {
		request, err := s.purchaseRepo.FindByIdempotencyKey(ctx, reference)
		if err != nil {
			return fmt.Errorf("failed to re-read purchase request: %w", err)
		}
		if request.State == models.PurchaseConfirmed {
			return nil
		}
		if request.State.Terminal() {
			return fmt.Errorf("purchase request %s reached %s before confirmation", reference, request.State)
		}

		changed, err := s.purchaseRepo.TransitionState(ctx, reference, request.State, models.PurchaseConfirmed, "")
		if err != nil {
			return fmt.Errorf("failed to confirm purchase request: %w", err)
		}
		if changed {
			return nil
		}
	}
	return fmt.Errorf("purchase request %s kept changing state during confirmation", reference)
}

// applyCredit appends the purchase and points transactions and credits the
// points award as one atomic account update. The purchase reference on the
// log entries makes the whole mutation idempotent: a replayed confirmation
// finds the entries already present and changes nothing.
func (s *CallbackServiceImpl) applyCredit(ctx context.Context, request *models.PurchaseRequest) (*models.Account, error) {
	kind := models.TransactionAirtime
	if request.Product == models.ProductData {
		kind = models.TransactionData
	}
	award := s.loyalty.PointsPerPurchase

	return s.accountRepo.AtomicUpdate(ctx, request.AccountID, func(account *models.Account) error {
		if account.HasTransactionFor(request.IdempotencyKey) {
			// Credit already applied by an earlier delivery.
			return nil
		}
		now := time.Now()
		account.Transactions = append(account.Transactions,
			models.Transaction{
				Kind:        kind,
				Amount:      request.Amount,
				Date:        now,
				Details:     request.Details,
				PurchaseRef: request.IdempotencyKey,
			},
			models.Transaction{
				Kind:        models.TransactionPoints,
				Amount:      decimal.NewFromInt(int64(award)),
				Date:        now,
				Details:     fmt.Sprintf("Earned %d points for %s purchase", award, request.Product),
				PurchaseRef: request.IdempotencyKey,
			},
		)
		account.Points += award
		return nil
	})
}

// notify sends the confirmation message best effort. A delivery failure is
// logged and never fails the purchase flow.
func (s *CallbackServiceImpl) notify(request *models.PurchaseRequest, points int) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		message := fmt.Sprintf("%s confirmed. You now have %d points.", request.Details, points)
		if err := s.notifier.Send(ctx, request.Phone, message); err != nil {
			slog.Warn("Confirmation notification failed", "error", err, "phone", request.Phone)
		}
	}()
}
