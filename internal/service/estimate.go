package service

import (
	"context"
	"fmt"

	"github.com/bblanco3/erp-backend/internal/domain"
	"github.com/bblanco3/erp-backend/internal/domain/estimate"
	"github.com/bblanco3/erp-backend/internal/domain/ledger"
	"github.com/bblanco3/erp-backend/internal/readmodel"
	"github.com/bblanco3/erp-backend/internal/tenantdb"
)

const modelEstimate = "estimate"

// editable refuses content edits on finalized estimates.
func editable(e *estimate.Estimate, op string) error {
	if !e.Editable() {
		return fmt.Errorf("%s estimate %s in status %q: %w",
			op, e.ID, e.Status, domain.ErrInvalidStateTransition)
	}
	return nil
}

func itemFromInput(in ItemInput) estimate.Item {
	it := estimate.Item{
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitPrice:   in.UnitPrice,
		MarkupPct:   in.MarkupPct,
		Position:    in.Position,
	}
	estimate.RecalculateItem(&it)
	return it
}

func (s *Service) createEstimate(ctx context.Context, c CreateEstimate) (*estimate.Estimate, error) {
	return mutate(ctx, s, CmdEstimateCreate,
		func(ctx context.Context, tx tenantdb.Querier, tenantID string) (*estimate.Estimate, *ledger.Entry, error) {
			p, err := s.projects.Get(ctx, tx, c.ProjectID)
			if err != nil {
				return nil, nil, err
			}
			n, err := s.estimates.CountForProject(ctx, tx, p.ID)
			if err != nil {
				return nil, nil, err
			}

			e := &estimate.Estimate{
				ProjectID:   p.ID,
				Number:      estimate.NumberFor(p.Number, n+1),
				Title:       c.Title,
				Description: c.Description,
				Status:      estimate.StatusDraft,
				Version:     1,
			}
			for i, in := range c.Items {
				it := itemFromInput(in)
				if it.Position == 0 {
					it.Position = i + 1
				}
				e.Items = append(e.Items, it)
			}
			estimate.Recalculate(e)

			if err := s.estimates.Insert(ctx, tx, e); err != nil {
				return nil, nil, err
			}

			entry, err := ledger.Created(tenantID, modelEstimate, e.ID, c.ActorID, e)
			return e, entry, err
		})
}

func (s *Service) updateEstimate(ctx context.Context, c UpdateEstimate) (*estimate.Estimate, error) {
	return mutate(ctx, s, CmdEstimateUpdate,
		func(ctx context.Context, tx tenantdb.Querier, tenantID string) (*estimate.Estimate, *ledger.Entry, error) {
			e, err := s.estimates.Get(ctx, tx, c.EstimateID)
			if err != nil {
				return nil, nil, err
			}
			if err := editable(e, "update"); err != nil {
				return nil, nil, err
			}
			old := *e

			if c.Title != "" {
				e.Title = c.Title
			}
			if c.Description != "" {
				e.Description = c.Description
			}
			if err := s.estimates.UpdateHeader(ctx, tx, e); err != nil {
				return nil, nil, err
			}

			entry, err := ledger.Updated(tenantID, modelEstimate, e.ID, c.ActorID, &old, e)
			return e, entry, err
		})
}

func (s *Service) deleteEstimate(ctx context.Context, c DeleteEstimate) (*estimate.Estimate, error) {
	return mutate(ctx, s, CmdEstimateDelete,
		func(ctx context.Context, tx tenantdb.Querier, tenantID string) (*estimate.Estimate, *ledger.Entry, error) {
			e, err := s.estimates.Get(ctx, tx, c.EstimateID)
			if err != nil {
				return nil, nil, err
			}
			if !e.CanDelete() {
				return nil, nil, fmt.Errorf("delete estimate %s in status %q: %w",
					e.ID, e.Status, domain.ErrInvalidStateTransition)
			}
			if err := s.estimates.Delete(ctx, tx, e.ID); err != nil {
				return nil, nil, err
			}

			entry, err := ledger.Deleted(tenantID, modelEstimate, e.ID, c.ActorID, e)
			return e, entry, err
		})
}

// transition factors the shared shape of submit, approve and reject: load,
// apply the domain transition, persist the status fields, record old vs new.
func (s *Service) transition(ctx context.Context, op, estimateID, actorID string,
	apply func(e *estimate.Estimate) error) (*estimate.Estimate, error) {
	return mutate(ctx, s, op,
		func(ctx context.Context, tx tenantdb.Querier, tenantID string) (*estimate.Estimate, *ledger.Entry, error) {
			e, err := s.estimates.Get(ctx, tx, estimateID)
			if err != nil {
				return nil, nil, err
			}
			old := *e

			if err := apply(e); err != nil {
				return nil, nil, err
			}
			if err := s.estimates.UpdateStatus(ctx, tx, e); err != nil {
				return nil, nil, err
			}

			entry, err := ledger.Updated(tenantID, modelEstimate, e.ID, actorID, &old, e)
			return e, entry, err
		})
}

func (s *Service) submitEstimate(ctx context.Context, c SubmitEstimate) (*estimate.Estimate, error) {
	return s.transition(ctx, CmdEstimateSubmit, c.EstimateID, c.ActorID,
		func(e *estimate.Estimate) error { return e.Submit() })
}

func (s *Service) approveEstimate(ctx context.Context, c ApproveEstimate) (*estimate.Estimate, error) {
	return s.transition(ctx, CmdEstimateApprove, c.EstimateID, c.ActorID,
		func(e *estimate.Estimate) error { return e.Approve(c.ActorID, s.now()) })
}

func (s *Service) rejectEstimate(ctx context.Context, c RejectEstimate) (*estimate.Estimate, error) {
	return s.transition(ctx, CmdEstimateReject, c.EstimateID, c.ActorID,
		func(e *estimate.Estimate) error { return e.Reject(c.Reason) })
}

func (s *Service) reviseEstimate(ctx context.Context, c ReviseEstimate) (*estimate.Estimate, error) {
	return mutate(ctx, s, CmdEstimateRevise,
		func(ctx context.Context, tx tenantdb.Querier, tenantID string) (*estimate.Estimate, *ledger.Entry, error) {
			orig, err := s.estimates.Get(ctx, tx, c.EstimateID)
			if err != nil {
				return nil, nil, err
			}

			rev := orig.Revise()
			estimate.Recalculate(rev)
			if err := s.estimates.Insert(ctx, tx, rev); err != nil {
				return nil, nil, err
			}

			entry, err := ledger.Created(tenantID, modelEstimate, rev.ID, c.ActorID, rev)
			return rev, entry, err
		})
}

// mutateItems factors the shared shape of the three item commands: load
// the estimate, refuse if finalized, apply the item change, persist it,
// then re-derive and store the aggregate totals.
func (s *Service) mutateItems(ctx context.Context, op, estimateID, actorID string,
	apply func(ctx context.Context, tx tenantdb.Querier, e *estimate.Estimate) error) (*estimate.Estimate, error) {
	return mutate(ctx, s, op,
		func(ctx context.Context, tx tenantdb.Querier, tenantID string) (*estimate.Estimate, *ledger.Entry, error) {
			e, err := s.estimates.Get(ctx, tx, estimateID)
			if err != nil {
				return nil, nil, err
			}
			if err := editable(e, op); err != nil {
				return nil, nil, err
			}
			old := *e
			old.Items = append([]estimate.Item(nil), e.Items...)

			if err := apply(ctx, tx, e); err != nil {
				return nil, nil, err
			}

			estimate.Recalculate(e)
			if err := s.estimates.UpdateTotals(ctx, tx, e); err != nil {
				return nil, nil, err
			}

			entry, err := ledger.Updated(tenantID, modelEstimate, e.ID, actorID, &old, e)
			return e, entry, err
		})
}

func (s *Service) addEstimateItem(ctx context.Context, c AddEstimateItem) (*estimate.Estimate, error) {
	return s.mutateItems(ctx, CmdEstimateAddItem, c.EstimateID, c.ActorID,
		func(ctx context.Context, tx tenantdb.Querier, e *estimate.Estimate) error {
			it := itemFromInput(c.Item)
			it.EstimateID = e.ID
			if it.Position == 0 {
				it.Position = len(e.Items) + 1
			}
			if err := s.estimates.InsertItem(ctx, tx, &it); err != nil {
				return err
			}
			e.Items = append(e.Items, it)
			return nil
		})
}

func (s *Service) updateEstimateItem(ctx context.Context, c UpdateEstimateItem) (*estimate.Estimate, error) {
	return s.mutateItems(ctx, CmdEstimateUpdateItem, c.EstimateID, c.ActorID,
		func(ctx context.Context, tx tenantdb.Querier, e *estimate.Estimate) error {
			for i := range e.Items {
				if e.Items[i].ID != c.ItemID {
					continue
				}
				it := &e.Items[i]
				it.Description = c.Item.Description
				it.Quantity = c.Item.Quantity
				it.UnitPrice = c.Item.UnitPrice
				it.MarkupPct = c.Item.MarkupPct
				if c.Item.Position != 0 {
					it.Position = c.Item.Position
				}
				estimate.RecalculateItem(it)
				return s.estimates.UpdateItem(ctx, tx, it)
			}
			return fmt.Errorf("estimate item %s: %w", c.ItemID, domain.ErrNotFound)
		})
}

func (s *Service) deleteEstimateItem(ctx context.Context, c DeleteEstimateItem) (*estimate.Estimate, error) {
	return s.mutateItems(ctx, CmdEstimateDeleteItem, c.EstimateID, c.ActorID,
		func(ctx context.Context, tx tenantdb.Querier, e *estimate.Estimate) error {
			for i := range e.Items {
				if e.Items[i].ID != c.ItemID {
					continue
				}
				if err := s.estimates.DeleteItem(ctx, tx, c.ItemID); err != nil {
					return err
				}
				e.Items = append(e.Items[:i], e.Items[i+1:]...)
				return nil
			}
			return fmt.Errorf("estimate item %s: %w", c.ItemID, domain.ErrNotFound)
		})
}

func (s *Service) listEstimates(ctx context.Context, q ListEstimates) ([]estimate.Estimate, error) {
	return readmodel.Fetch(ctx, s.views, QryEstimateList, q,
		func(ctx context.Context) ([]estimate.Estimate, error) {
			conn, err := tenantdb.SessionFromContext(ctx)
			if err != nil {
				return nil, err
			}
			return s.estimates.List(ctx, conn, q.ProjectID, q.Status)
		})
}

func (s *Service) getEstimate(ctx context.Context, q GetEstimate) (*estimate.Estimate, error) {
	return readmodel.Fetch(ctx, s.views, QryEstimateGet, q,
		func(ctx context.Context) (*estimate.Estimate, error) {
			conn, err := tenantdb.SessionFromContext(ctx)
			if err != nil {
				return nil, err
			}
			return s.estimates.Get(ctx, conn, q.EstimateID)
		})
}

// markupPlan is a pure what-if computation over current state; it is
// served uncached because the target percentage is caller-chosen and
// rarely repeats.
func (s *Service) markupPlan(ctx context.Context, q MarkupPlan) ([]estimate.MarkupAdjustment, error) {
	conn, err := tenantdb.SessionFromContext(ctx)
	if err != nil {
		return nil, err
	}
	e, err := s.estimates.Get(ctx, conn, q.EstimateID)
	if err != nil {
		return nil, err
	}
	return estimate.DistributeMarkup(e, q.TargetPct), nil
}
