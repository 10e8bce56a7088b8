package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/arpit-jain4999/wallet-ledger/internal/money"
)

// Service exposes wallet provisioning and lookup.
type Service struct {
	repo Repository
}

// NewService builds a wallet service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput captures data required to create a wallet. InitialBalance is a
// decimal string; empty means zero.
type CreateInput struct {
	Name           string
	InitialBalance string
}

// Create provisions a wallet with an opaque identifier independent of its name.
func (s *Service) Create(ctx context.Context, input CreateInput) (Wallet, error) {
	balance := int64(0)
	if input.InitialBalance != "" {
		parsed, err := money.Parse(input.InitialBalance)
		if err != nil {
			return Wallet{}, err
		}
		if parsed < 0 {
			return Wallet{}, fmt.Errorf("%w: initial balance must not be negative", money.ErrInvalidAmount)
		}
		balance = parsed
	}

	now := time.Now().UTC()
	w := Wallet{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Balance:   balance,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Get retrieves a wallet by identifier.
func (s *Service) Get(ctx context.Context, id string) (Wallet, error) {
	return s.repo.Get(ctx, id)
}
