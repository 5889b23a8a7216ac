package onboarding

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/InnerAnythings/hearts-server/internal/ports"
)

type fakeAccountPort struct {
	updateErr error
	names     []string
}

func (f *fakeAccountPort) UpdateProfile(ctx context.Context, userID, username, displayName string) error {
	f.names = append(f.names, displayName)
	return f.updateErr
}

type fakeEconomyPort struct {
	updateErr error
	updates   [][]ports.WalletUpdate
}

func (f *fakeEconomyPort) GetBalance(ctx context.Context, userID string) (int64, error) {
	return 0, nil
}

func (f *fakeEconomyPort) UpdateBalances(ctx context.Context, updates []ports.WalletUpdate) error {
	f.updates = append(f.updates, updates)
	return f.updateErr
}

func TestOnboardNewUser_GrantsWelcomeBonus(t *testing.T) {
	accounts := &fakeAccountPort{}
	economy := &fakeEconomyPort{}
	service := NewService(accounts, economy, 500, rand.New(rand.NewSource(1)))

	result, err := service.OnboardNewUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("OnboardNewUser returned error: %v", err)
	}
	if result.ProfileUpdateErr != nil {
		t.Fatalf("Expected no profile update error, got %v", result.ProfileUpdateErr)
	}
	if result.DisplayName == "" {
		t.Fatal("Expected a generated display name")
	}
	if len(accounts.names) != 1 || accounts.names[0] != result.DisplayName {
		t.Fatalf("Expected profile update with %q, got %v", result.DisplayName, accounts.names)
	}

	if len(economy.updates) != 1 || len(economy.updates[0]) != 1 {
		t.Fatalf("Expected 1 wallet update, got %v", economy.updates)
	}
	update := economy.updates[0][0]
	if update.UserID != "user-1" || update.Amount != 500 {
		t.Fatalf("Unexpected wallet update: %+v", update)
	}
	if update.Metadata["reason"] != "welcome_bonus" {
		t.Fatalf("Unexpected wallet metadata: %v", update.Metadata)
	}
}

func TestOnboardNewUser_AccountUpdateFailureStillGrantsBonus(t *testing.T) {
	economy := &fakeEconomyPort{}
	service := NewService(&fakeAccountPort{updateErr: errors.New("update failed")}, economy, 500, rand.New(rand.NewSource(1)))

	result, err := service.OnboardNewUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("OnboardNewUser returned error: %v", err)
	}
	if result.ProfileUpdateErr == nil {
		t.Fatal("Expected profile update error to be captured")
	}

	if len(economy.updates) != 1 {
		t.Fatalf("Expected 1 wallet update, got %d", len(economy.updates))
	}
}

func TestOnboardNewUser_WelcomeBonusFailureReturnsError(t *testing.T) {
	service := NewService(&fakeAccountPort{}, &fakeEconomyPort{updateErr: errors.New("wallet failed")}, 500, rand.New(rand.NewSource(1)))

	if _, err := service.OnboardNewUser(context.Background(), "user-1"); err == nil {
		t.Fatal("Expected error when welcome bonus fails")
	}
}

func TestOnboardNewUser_ZeroBonusSkipsWallet(t *testing.T) {
	economy := &fakeEconomyPort{}
	service := NewService(&fakeAccountPort{}, economy, 0, rand.New(rand.NewSource(1)))

	if _, err := service.OnboardNewUser(context.Background(), "user-1"); err != nil {
		t.Fatalf("OnboardNewUser returned error: %v", err)
	}
	if len(economy.updates) != 0 {
		t.Fatalf("Expected no wallet updates, got %v", economy.updates)
	}
}
