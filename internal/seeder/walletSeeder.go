package seeder

import (
	"errors"
	"log"

	"github.com/sportdesk/walletd/internal/models"
	"github.com/sportdesk/walletd/internal/repository"
)

// demoClientID groups the seeded wallets under one pretend operator.
const demoClientID = 1

// seedWallets creates a small set of wallets to exercise the API against
// locally: a funded customer, a broke customer and a branch float wallet.
func (seeder *Seeder) seedWallets() {
	wallets := []models.Wallet{
		{ClientID: demoClientID, UserID: 1001, Username: "demo_customer", AvailableBalance: 250_000},
		{ClientID: demoClientID, UserID: 1002, Username: "demo_broke", AvailableBalance: 0},
		{ClientID: demoClientID, UserID: 2001, Username: "demo_branch", AvailableBalance: 1_000_000},
	}

	repo := seeder.DB.Wallet()

	for i := range wallets {
		_, err := repo.Insert(&wallets[i], nil)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateWallet) {
				continue
			}
			log.Fatalf("Failed to seed wallet for user %d: %v", wallets[i].UserID, err)
		}
	}

	log.Printf("Seeded %d demo wallets for client %d", len(wallets), demoClientID)
}
