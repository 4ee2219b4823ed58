package ribaapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/payment"
	"github.com/gestionale/backend/internal/domain/riba"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service drives the distinta lifecycle: emission, modification, deletion
// and the final collection of emitted items.
type Service struct {
	documents billing.DocumentRepository
	items     riba.Repository
	payments  payment.Repository
	logger    *zap.Logger
}

// NewService creates a RiBa Service
func NewService(
	documents billing.DocumentRepository,
	items riba.Repository,
	payments payment.Repository,
	logger *zap.Logger,
) *Service {
	return &Service{
		documents: documents,
		items:     items,
		payments:  payments,
		logger:    logger,
	}
}

// CreateDistintaRequest selects the batch for a new distinta. ItemIDs refer
// to existing RiBa rows in TO_EMIT; ScheduleIDs cover RIBA schedules whose
// row does not exist yet and is synthesized during emission.
type CreateDistintaRequest struct {
	Number        string
	Date          valueobject.Date
	Bank          string
	ItemIDs       []uuid.UUID
	ScheduleIDs   []uuid.UUID
	CreditNoteIDs []uuid.UUID
}

// DistintaResult reports the emitted batch amounts
type DistintaResult struct {
	DistintaID      uuid.UUID         `json:"distinta_id"`
	Number          string            `json:"number"`
	Gross           valueobject.Money `json:"gross"`
	CreditNoteTotal valueobject.Money `json:"credit_note_total"`
	Net             valueobject.Money `json:"net"`
}

// CreateDistinta emits a batch of RiBa items into a new distinta. Selected
// credit notes are applied against the batch at emission time, largest
// residual first, producing one virtual payment per consumed note dated on
// the distinta date.
func (s *Service) CreateDistinta(ctx context.Context, req CreateDistintaRequest) (*DistintaResult, error) {
	if len(req.ItemIDs) == 0 && len(req.ScheduleIDs) == 0 {
		return nil, shared.ErrEmptySelection
	}
	if _, err := s.items.FindDistintaByNumber(ctx, req.Number); err == nil {
		return nil, shared.NewDomainError("DUPLICATE_NUMBER",
			fmt.Sprintf("Distinta %s already exists", req.Number))
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	distinta, err := riba.NewDistinta(req.Number, req.Date, req.Bank)
	if err != nil {
		return nil, err
	}

	batch, err := s.resolveBatch(ctx, req.ItemIDs, req.ScheduleIDs)
	if err != nil {
		return nil, err
	}

	gross := valueobject.Zero()
	for _, entry := range batch {
		gross = gross.Add(entry.schedule.Amount.Abs())
	}

	virtualPayments, offsetTotal, err := s.applyCreditNotes(ctx, batch, req.CreditNoteIDs, req.Date)
	if err != nil {
		return nil, err
	}

	items := make([]*riba.Item, 0, len(batch))
	for _, entry := range batch {
		if err := entry.item.Emit(distinta.ID, distinta.Number, distinta.Date, distinta.Bank); err != nil {
			return nil, err
		}
		items = append(items, entry.item)
	}

	if err := s.items.CreateDistinta(ctx, distinta, items, virtualPayments); err != nil {
		return nil, err
	}

	net := gross.Sub(offsetTotal)
	if net.IsNegative() {
		net = valueobject.Zero()
	}
	s.logger.Info("distinta emitted",
		zap.String("number", distinta.Number),
		zap.String("bank", distinta.Bank),
		zap.Int("items", len(items)),
		zap.String("gross", gross.String()),
		zap.String("net", net.String()),
	)
	return &DistintaResult{
		DistintaID:      distinta.ID,
		Number:          distinta.Number,
		Gross:           gross,
		CreditNoteTotal: offsetTotal,
		Net:             net,
	}, nil
}

// ModifyDistintaRequest replaces the item set and header of a distinta.
// ItemIDs and ScheduleIDs together form the new item set.
type ModifyDistintaRequest struct {
	DistintaID  uuid.UUID
	Number      string
	Date        valueobject.Date
	Bank        string
	ItemIDs     []uuid.UUID
	ScheduleIDs []uuid.UUID
}

// ModifyDistinta applies the item-set delta: removed items return to
// TO_EMIT, added items are emitted, remaining items are restamped with the
// updated header metadata.
func (s *Service) ModifyDistinta(ctx context.Context, req ModifyDistintaRequest) error {
	distinta, err := s.items.FindDistintaByID(ctx, req.DistintaID)
	if err != nil {
		return err
	}
	if number := strings.TrimSpace(req.Number); number != distinta.Number {
		if existing, ferr := s.items.FindDistintaByNumber(ctx, number); ferr == nil && existing.ID != distinta.ID {
			return shared.NewDomainError("DUPLICATE_NUMBER",
				fmt.Sprintf("Distinta %s already exists", number))
		} else if ferr != nil && !errors.Is(ferr, shared.ErrNotFound) {
			return ferr
		}
	}
	if err := distinta.Rename(req.Number, req.Date, req.Bank); err != nil {
		return err
	}

	current, err := s.items.FindItemsByDistinta(ctx, req.DistintaID)
	if err != nil {
		return err
	}

	batch, err := s.resolveBatch(ctx, req.ItemIDs, req.ScheduleIDs)
	if err != nil {
		return err
	}
	wanted := make(map[uuid.UUID]*riba.Item, len(batch))
	for _, entry := range batch {
		wanted[entry.item.ID] = entry.item
	}

	var touched []*riba.Item
	for i := range current {
		item := current[i]
		if _, keep := wanted[item.ID]; keep {
			if item.State == riba.StateEmitted {
				if err := item.Restamp(distinta.Number, distinta.Date, distinta.Bank); err != nil {
					return err
				}
				touched = append(touched, &item)
			}
			delete(wanted, item.ID)
			continue
		}
		if item.State != riba.StateEmitted {
			continue
		}
		if err := item.Unwind(); err != nil {
			return err
		}
		touched = append(touched, &item)
	}

	for _, item := range wanted {
		if err := item.Emit(distinta.ID, distinta.Number, distinta.Date, distinta.Bank); err != nil {
			return err
		}
		touched = append(touched, item)
	}

	if err := s.items.UpdateDistinta(ctx, distinta, touched); err != nil {
		return err
	}
	s.logger.Info("distinta modified",
		zap.String("number", distinta.Number),
		zap.Int("touched_items", len(touched)),
	)
	return nil
}

// DeleteDistinta unwinds the emitted items back to TO_EMIT and removes the
// header. PAID items keep their emission stamps as history but lose the
// header reference. Credit-note offsets booked at emission time are kept.
func (s *Service) DeleteDistinta(ctx context.Context, distintaID uuid.UUID) error {
	distinta, err := s.items.FindDistintaByID(ctx, distintaID)
	if err != nil {
		return err
	}
	current, err := s.items.FindItemsByDistinta(ctx, distintaID)
	if err != nil {
		return err
	}

	var unwound []*riba.Item
	for i := range current {
		item := current[i]
		if item.State == riba.StatePaid {
			item.DetachDistinta()
			unwound = append(unwound, &item)
			continue
		}
		if item.State != riba.StateEmitted {
			continue
		}
		if err := item.Unwind(); err != nil {
			return err
		}
		unwound = append(unwound, &item)
	}

	if err := s.items.DeleteDistinta(ctx, distinta, unwound); err != nil {
		return err
	}
	s.logger.Info("distinta deleted",
		zap.String("number", distinta.Number),
		zap.Int("unwound_items", len(unwound)),
	)
	return nil
}

// PaidItem reports one collected RiBa item
type PaidItem struct {
	ItemID    uuid.UUID         `json:"item_id"`
	PaymentID *uuid.UUID        `json:"payment_id,omitempty"`
	Amount    valueobject.Money `json:"amount"`
}

// PayRibaItems books the bank collection of the given items: one real RIBA
// payment per item for the schedule residual net of credit-note offsets,
// dated on the schedule due date. Items whose residual already collapsed
// transition to PAID without a payment.
func (s *Service) PayRibaItems(ctx context.Context, itemIDs []uuid.UUID) ([]PaidItem, error) {
	if len(itemIDs) == 0 {
		return nil, shared.ErrEmptySelection
	}

	results := make([]PaidItem, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		item, err := s.items.FindItemByID(ctx, itemID)
		if err != nil {
			return results, err
		}
		if item.State == riba.StatePaid {
			continue
		}

		doc, err := s.documents.FindByID(ctx, item.DocumentID)
		if err != nil {
			return results, err
		}
		schedule := doc.FindSchedule(item.ScheduleID)
		if schedule == nil {
			return results, shared.NewDomainError("INVALID_SCHEDULE",
				fmt.Sprintf("RiBa item %s references a missing schedule", item.ID))
		}

		totals, err := s.documents.Allocations(ctx, []uuid.UUID{doc.ID})
		if err != nil {
			return results, err
		}
		t := totals[doc.ID]
		residual := doc.ScheduleResiduals(t.Paid, t.Offset)[item.ScheduleID]

		if residual.IsSettled() {
			if err := item.MarkPaid(); err != nil {
				return results, err
			}
			if err := s.items.SaveItems(ctx, []*riba.Item{item}); err != nil {
				return results, err
			}
			results = append(results, PaidItem{ItemID: item.ID, Amount: valueobject.Zero()})
			continue
		}

		collection, err := payment.NewPayment(
			doc.SubjectID, schedule.DueDate, billing.ModalityRiba,
			payment.DirectionReceipt, residual, valueobject.Zero(),
		)
		if err != nil {
			return results, err
		}
		if err := collection.Associate(doc.ID, residual); err != nil {
			return results, err
		}
		if err := s.payments.SaveApplication(ctx, []*payment.Payment{collection}, []uuid.UUID{item.ScheduleID}); err != nil {
			return results, err
		}
		results = append(results, PaidItem{ItemID: item.ID, PaymentID: &collection.ID, Amount: residual})
	}

	s.logger.Info("riba items collected", zap.Int("items", len(results)))
	return results, nil
}

// batchEntry pairs a RiBa item with its schedule and owning document
type batchEntry struct {
	item     *riba.Item
	schedule *billing.Schedule
	document *billing.Document
}

// resolveBatch loads existing items and synthesizes rows for raw schedule
// ids. Every entry carries its schedule and document for amount and
// credit-note work.
func (s *Service) resolveBatch(ctx context.Context, itemIDs, scheduleIDs []uuid.UUID) ([]batchEntry, error) {
	var batch []batchEntry
	seen := make(map[uuid.UUID]bool)

	appendEntry := func(item *riba.Item) error {
		if seen[item.ScheduleID] {
			return nil
		}
		seen[item.ScheduleID] = true
		doc, err := s.documents.FindByID(ctx, item.DocumentID)
		if err != nil {
			return err
		}
		schedule := doc.FindSchedule(item.ScheduleID)
		if schedule == nil {
			return shared.NewDomainError("INVALID_SCHEDULE",
				fmt.Sprintf("RiBa item %s references a missing schedule", item.ID))
		}
		batch = append(batch, batchEntry{item: item, schedule: schedule, document: doc})
		return nil
	}

	for _, id := range itemIDs {
		item, err := s.items.FindItemByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := appendEntry(item); err != nil {
			return nil, err
		}
	}

	for _, scheduleID := range scheduleIDs {
		item, err := s.items.FindItemBySchedule(ctx, scheduleID)
		if errors.Is(err, shared.ErrNotFound) {
			schedules, serr := s.documents.FindSchedules(ctx, []uuid.UUID{scheduleID})
			if serr != nil {
				return nil, serr
			}
			if len(schedules) == 0 {
				return nil, shared.NewDomainError("INVALID_SCHEDULE",
					fmt.Sprintf("Schedule %s does not exist", scheduleID))
			}
			item, serr = riba.NewItem(scheduleID, schedules[0].DocumentID)
			if serr != nil {
				return nil, serr
			}
		} else if err != nil {
			return nil, err
		}
		if err := appendEntry(item); err != nil {
			return nil, err
		}
	}

	return batch, nil
}

// applyCreditNotes runs the emission-time credit-note phase. Notes are
// grouped with the batch schedules of their own subject and consumed largest
// residual first, FIFO by due date across the schedules.
func (s *Service) applyCreditNotes(
	ctx context.Context,
	batch []batchEntry,
	creditNoteIDs []uuid.UUID,
	distintaDate valueobject.Date,
) ([]*payment.Payment, valueobject.Money, error) {
	offsetTotal := valueobject.Zero()
	if len(creditNoteIDs) == 0 {
		return nil, offsetTotal, nil
	}

	statesBySubject, err := s.batchScheduleStates(ctx, batch)
	if err != nil {
		return nil, offsetTotal, err
	}
	notesBySubject, err := s.creditNoteStates(ctx, creditNoteIDs)
	if err != nil {
		return nil, offsetTotal, err
	}

	var virtualPayments []*payment.Payment
	for subjectID, notes := range notesBySubject {
		states := statesBySubject[subjectID]
		if len(states) == 0 {
			continue
		}
		payment.SortCreditNotesByAmountDesc(notes)
		plan, err := payment.Allocate(states, notes, valueobject.Zero())
		if err != nil {
			return nil, offsetTotal, err
		}
		for creditNoteID, offsets := range plan.OffsetsByCreditNote() {
			virtual, err := payment.NewVirtualPayment(subjectID, distintaDate)
			if err != nil {
				return nil, offsetTotal, err
			}
			for _, o := range offsets {
				if err := virtual.AssociateOffset(o.DocumentID, creditNoteID, o.Amount); err != nil {
					return nil, offsetTotal, err
				}
			}
			virtualPayments = append(virtualPayments, virtual)
		}
		offsetTotal = offsetTotal.Add(plan.OffsetTotal)
	}
	return virtualPayments, offsetTotal, nil
}

func (s *Service) batchScheduleStates(ctx context.Context, batch []batchEntry) (map[uuid.UUID][]payment.ScheduleState, error) {
	docIDs := make([]uuid.UUID, 0, len(batch))
	seen := make(map[uuid.UUID]bool)
	for _, entry := range batch {
		if !seen[entry.document.ID] {
			seen[entry.document.ID] = true
			docIDs = append(docIDs, entry.document.ID)
		}
	}
	totals, err := s.documents.Allocations(ctx, docIDs)
	if err != nil {
		return nil, err
	}

	residuals := make(map[uuid.UUID]valueobject.Money)
	computed := make(map[uuid.UUID]bool)
	for _, entry := range batch {
		if computed[entry.document.ID] {
			continue
		}
		computed[entry.document.ID] = true
		t := totals[entry.document.ID]
		for scheduleID, residual := range entry.document.ScheduleResiduals(t.Paid, t.Offset) {
			residuals[scheduleID] = residual
		}
	}

	states := make(map[uuid.UUID][]payment.ScheduleState)
	for _, entry := range batch {
		residual := residuals[entry.schedule.ID]
		if !residual.IsPositive() {
			continue
		}
		states[entry.document.SubjectID] = append(states[entry.document.SubjectID], payment.ScheduleState{
			ScheduleID: entry.schedule.ID,
			DocumentID: entry.document.ID,
			DueDate:    entry.schedule.DueDate,
			Residual:   residual,
		})
	}
	return states, nil
}

func (s *Service) creditNoteStates(ctx context.Context, creditNoteIDs []uuid.UUID) (map[uuid.UUID][]payment.CreditNoteState, error) {
	totals, err := s.documents.Allocations(ctx, creditNoteIDs)
	if err != nil {
		return nil, err
	}

	notes := make(map[uuid.UUID][]payment.CreditNoteState)
	for _, id := range creditNoteIDs {
		note, err := s.documents.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if !note.Class.IsCreditNote() {
			return nil, shared.NewDomainError("INVALID_SELECTION",
				fmt.Sprintf("Document %s is not a credit note", note.Number))
		}
		t := totals[id]
		residual := note.Residual(t.Paid, t.Offset)
		if !residual.IsPositive() {
			continue
		}
		notes[note.SubjectID] = append(notes[note.SubjectID], payment.CreditNoteState{
			DocumentID:   note.ID,
			DocumentDate: note.DocumentDate,
			Residual:     residual,
		})
	}
	return notes, nil
}
