// Package command holds the write-side use cases: admission, the
// idempotency resolver, and the settlement coordinator. Collaborators
// are passed in as an explicit struct of interfaces; there is no
// container framework (see design note: dependency injection).
package command

import (
	"database/sql"

	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/ledgerrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/outboxrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/postgres/paymentrepo"
	"github.com/msdcl/payment-ledger-system-sub000/internal/adapters/redis/idempotency"
)

// UseCase bundles the collaborators the command layer needs. DB is kept
// alongside the repositories so settlement can open one transaction
// that spans all three of them (payment, ledger, outbox).
type UseCase struct {
	DB               *sql.DB
	PaymentRepo      paymentrepo.Repository
	LedgerRepo       ledgerrepo.Repository
	OutboxRepo       outboxrepo.Repository
	IdempotencyCache idempotency.Cache
}
