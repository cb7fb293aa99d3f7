package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/store"
)

// CreateRecurringInput describes a recurring template. Amount is a positive
// magnitude; the sign follows Type when transactions are generated.
type CreateRecurringInput struct {
	Type        core.TransactionType `json:"type"`
	Amount      decimal.Decimal      `json:"amount"`
	AccountID   string               `json:"accountId"`
	CategoryID  *string              `json:"categoryId,omitempty"`
	Description string               `json:"description"`
	Every       core.Repetition      `json:"every"`
	StartDate   time.Time            `json:"startDate"`
	EndDate     *time.Time           `json:"endDate,omitempty"`
}

// RecurringService manages recurring transaction templates.
type RecurringService struct {
	store  store.Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewRecurringService(r store.Repository) *RecurringService {
	return &RecurringService{
		store:  r,
		logger: slog.Default().With(log.FieldComponent, log.ComponentRecurring),
		now:    time.Now,
	}
}

func (s *RecurringService) Create(ctx context.Context, ownerID string, in CreateRecurringInput) (*core.RecurringTransaction, error) {
	rt := &core.RecurringTransaction{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Type:        in.Type,
		Amount:      in.Amount.Abs(),
		AccountID:   strings.TrimSpace(in.AccountID),
		CategoryID:  in.CategoryID,
		Description: strings.TrimSpace(in.Description),
		Every:       in.Every,
		StartDate:   core.NormalizeDate(in.StartDate),
	}
	if in.EndDate != nil {
		rt.EndDate = core.Ptr(core.NormalizeDate(*in.EndDate))
	}
	if in.Amount.IsNegative() {
		return nil, core.Validationf("recurring amount must be a positive magnitude")
	}
	if rt.Type == core.TypeIncome {
		rt.CategoryID = nil
	}
	if err := rt.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.store.GetAccount(ctx, ownerID, rt.AccountID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.Referencef("account %s does not exist", rt.AccountID)
		}
		return nil, err
	}
	if rt.CategoryID != nil {
		if _, err := s.store.GetCategory(ctx, ownerID, *rt.CategoryID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, core.Referencef("category %s does not exist", *rt.CategoryID)
			}
			return nil, err
		}
	}

	if err := s.store.CreateRecurring(ctx, rt); err != nil {
		return nil, fmt.Errorf("create recurring transaction: %w", err)
	}
	s.logger.InfoContext(ctx, "Recurring transaction created",
		log.FieldOwnerID, ownerID, "recurring_id", rt.ID, "every", string(rt.Every))
	return rt, nil
}

func (s *RecurringService) Get(ctx context.Context, ownerID, id string) (*core.RecurringTransaction, error) {
	return s.store.GetRecurring(ctx, ownerID, id)
}

func (s *RecurringService) List(ctx context.Context, ownerID string) ([]core.RecurringTransaction, error) {
	return s.store.ListRecurring(ctx, ownerID)
}

// Delete removes the template. Transactions it already generated stay.
func (s *RecurringService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteRecurring(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Recurring transaction deleted", log.FieldOwnerID, ownerID, "recurring_id", id)
	return nil
}
