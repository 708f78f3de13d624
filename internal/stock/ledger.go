package stock

import (
	"context"
	"fmt"

	"github.com/FindMalek/dukkani-sub000/internal/database"
)

// Direction selects whether a Ledger adds or removes stock.
type Direction int

const (
	Decrement Direction = iota + 1
	Increment
)

func (d Direction) String() string {
	switch d {
	case Decrement:
		return "decrement"
	case Increment:
		return "increment"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

func (d Direction) sign() int {
	if d == Decrement {
		return -1
	}
	return 1
}

// Ledger applies stock movements. It does not floor at zero; callers run a
// Checker first on the same transaction.
type Ledger struct {
	repo Repository
}

// NewLedger constructs a Ledger.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Apply moves stock for every distinct target in lines, one update per target.
// The statements share q's connection, so they are issued one after another in
// the same order the Checker locks rows.
func (l *Ledger) Apply(ctx context.Context, q database.Queryer, lines []Line, dir Direction) error {
	if dir != Decrement && dir != Increment {
		return fmt.Errorf("stock ledger: invalid %s", dir)
	}
	demands, err := Aggregate(lines)
	if err != nil {
		return err
	}

	for _, d := range demands {
		delta := dir.sign() * d.Quantity
		switch t := d.Target.(type) {
		case VariantTarget:
			if err := l.repo.AdjustVariantStock(ctx, q, t.VariantID, delta); err != nil {
				return fmt.Errorf("%s variant %s: %w", dir, t.VariantID, err)
			}
		case ProductTarget:
			if err := l.repo.AdjustProductStock(ctx, q, t.ProductID, delta); err != nil {
				return fmt.Errorf("%s product %s: %w", dir, t.ProductID, err)
			}
		}
	}
	return nil
}
