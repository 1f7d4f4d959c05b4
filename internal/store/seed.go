package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"memberdesk/internal/domain"
)

// Seed prepares a fresh store for first use: every enumerated collection
// exists (empty if never written), and the accounts collection holds
// exactly one administrator if it holds nothing. Safe to run on every
// startup; existing data is left alone.
func Seed(ctx context.Context, s Store, adminPassword string) error {
	existing, err := s.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("seed bootstrap: %w", err)
	}

	for _, name := range domain.AllCollections() {
		if len(existing[name]) > 0 {
			continue
		}
		if err := s.Put(ctx, name, nil); err != nil {
			return fmt.Errorf("seed collection %s: %w", name, err)
		}
	}

	if len(existing[domain.Accounts]) > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	admin := domain.Account{
		ID:           uuid.NewString(),
		Username:     "admin",
		PasswordHash: string(hash),
		Role:         "admin",
		CreatedAt:    time.Now(),
	}
	records, err := domain.EncodeRecords([]domain.Account{admin})
	if err != nil {
		return fmt.Errorf("encode admin account: %w", err)
	}
	if err := s.Put(ctx, domain.Accounts, records); err != nil {
		return fmt.Errorf("seed accounts: %w", err)
	}
	return nil
}
