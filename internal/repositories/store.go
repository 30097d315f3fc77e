package repositories

import (
	"context"

	"stockbill/pkg/database"

	"github.com/jackc/pgx/v5"
)

// Store groups the repositories that take part in an invoice transaction.
type Store interface {
	Products() ProductRepository
	Invoices() InvoiceRepository
	Sequences() InvoiceSequenceRepository
}

// TxStore is a Store that can run a unit of work atomically.
type TxStore interface {
	Store
	// WithinTx runs fn against repositories bound to one transaction.
	WithinTx(ctx context.Context, fn func(Store) error) error
}

type pgStore struct {
	db database.TxBeginner
}

func NewStore(db database.TxBeginner) TxStore {
	return &pgStore{db: db}
}

func (s *pgStore) Products() ProductRepository          { return NewProductRepo(s.db) }
func (s *pgStore) Invoices() InvoiceRepository          { return NewInvoiceRepo(s.db) }
func (s *pgStore) Sequences() InvoiceSequenceRepository { return NewInvoiceSequenceRepo(s.db) }

func (s *pgStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	return database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(&pgStore{db: tx})
	})
}
