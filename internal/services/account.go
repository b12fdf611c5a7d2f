package services

import (
	"context"

	"github.com/hoas/apiserver/types"
)

// AccountService encapsulates identity-provider use-cases.
type AccountService struct {
	repo AccountRepository
}

func NewAccountService(repo AccountRepository) *AccountService {
	return &AccountService{repo: repo}
}

func (s *AccountService) GetByID(ctx context.Context, id string) (types.Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *AccountService) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	return s.repo.GetByEmail(ctx, email)
}

func (s *AccountService) Create(ctx context.Context, account types.Account) (types.Account, error) {
	return s.repo.Create(ctx, account)
}

func (s *AccountService) SetAdmin(ctx context.Context, email string, admin bool) error {
	return s.repo.SetAdmin(ctx, email, admin)
}
