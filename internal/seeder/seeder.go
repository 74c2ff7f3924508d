// Package seeder provisions demo data for local development. It is only ever
// invoked behind the -seed flag; nothing in the serving path depends on it.
package seeder

import (
	"github.com/sportdesk/walletd/internal/repository"
)

type Seeder struct {
	DB repository.Database
}

func New(db repository.Database) *Seeder {
	return &Seeder{
		DB: db,
	}
}

func (seeder *Seeder) Run() {
	seeder.seedWallets()
}
