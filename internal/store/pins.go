package store

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/dbx"
	"github.com/dmitrijs2005/docvault/internal/repositories/documents"
	"github.com/dmitrijs2005/docvault/internal/repositories/templates"
)

// pinRepo is the pinned-order surface shared by documents and templates.
type pinRepo interface {
	pinnedIDs(ctx context.Context) ([]string, error)
	SetPinnedOrder(ctx context.Context, id string, order *int) error
}

type documentPins struct{ *documents.SQLiteRepository }

func (d documentPins) pinnedIDs(ctx context.Context) ([]string, error) {
	recs, err := d.ListPinned(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids, nil
}

type templatePins struct{ *templates.SQLiteRepository }

func (t templatePins) pinnedIDs(ctx context.Context) ([]string, error) {
	return t.ListPinnedIDs(ctx)
}

// normalizePins rewrites pinned orders to 1..N in their current order and
// returns the pinned ids in that order.
func normalizePins(ctx context.Context, repo pinRepo) ([]string, error) {
	ids, err := repo.pinnedIDs(ctx)
	if err != nil {
		return nil, err
	}
	for i, id := range ids {
		order := i + 1
		if err := repo.SetPinnedOrder(ctx, id, &order); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// pinAtEnd normalizes and pins id after the last pinned item. Pinning an
// already pinned item keeps its position.
func pinAtEnd(ctx context.Context, repo pinRepo, id string) (int, error) {
	ids, err := normalizePins(ctx, repo)
	if err != nil {
		return 0, err
	}
	for i, pinned := range ids {
		if pinned == id {
			return i + 1, nil
		}
	}

	order := len(ids) + 1
	return order, repo.SetPinnedOrder(ctx, id, &order)
}

func unpin(ctx context.Context, repo pinRepo, id string) error {
	if err := repo.SetPinnedOrder(ctx, id, nil); err != nil {
		return err
	}
	_, err := normalizePins(ctx, repo)
	return err
}

// SetPinned pins a document at the end of the pinned list or unpins it,
// keeping the remaining orders dense.
func (s *Store) SetPinned(ctx context.Context, id string, pinned bool) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		dr := documents.NewSQLiteRepository(tx)
		if _, err := dr.GetByID(ctx, id); err != nil {
			return err
		}
		if pinned {
			_, err := pinAtEnd(ctx, documentPins{dr}, id)
			return err
		}
		return unpin(ctx, documentPins{dr}, id)
	})
}

// SwapPinned normalizes pinned orders to 1..N and then exchanges the orders
// of a and b. Calling it twice with the same pair restores the original
// order.
func (s *Store) SwapPinned(ctx context.Context, a, b string) error {
	return s.withTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		dr := documents.NewSQLiteRepository(tx)

		ids, err := normalizePins(ctx, documentPins{dr})
		if err != nil {
			return err
		}

		ia, ib := indexOf(ids, a), indexOf(ids, b)
		if ia < 0 || ib < 0 {
			return fmt.Errorf("%w: both documents must be pinned", common.ErrInvalidArgument)
		}
		if ia == ib {
			return nil
		}

		oa, ob := ib+1, ia+1
		if err := dr.SetPinnedOrder(ctx, a, &oa); err != nil {
			return err
		}
		return dr.SetPinnedOrder(ctx, b, &ob)
	})
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
