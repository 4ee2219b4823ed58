package paymentapp

import (
	"context"
	"fmt"

	"github.com/gestionale/backend/internal/domain/anagrafica"
	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/intent"
	"github.com/gestionale/backend/internal/domain/payment"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service runs the payment engine: it turns a user selection of schedules
// and credit notes into persisted payments and associations.
type Service struct {
	subjects  anagrafica.SubjectRepository
	documents billing.DocumentRepository
	payments  payment.Repository
	intents   intent.Repository
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewService creates a payment Service
func NewService(
	subjects anagrafica.SubjectRepository,
	documents billing.DocumentRepository,
	payments payment.Repository,
	intents intent.Repository,
	logger *zap.Logger,
) *Service {
	return &Service{
		subjects:  subjects,
		documents: documents,
		payments:  payments,
		intents:   intents,
		validate:  validator.New(),
		logger:    logger,
	}
}

// ApplyPaymentRequest is the input of one apply-payment call. CreditNoteIDs
// are document ids of credit notes belonging to the same subject.
type ApplyPaymentRequest struct {
	SubjectID     uuid.UUID         `validate:"required"`
	Date          valueobject.Date  `validate:"-"`
	Modality      billing.Modality  `validate:"required"`
	Total         valueobject.Money `validate:"-"`
	Accessories   valueobject.Money `validate:"-"`
	ScheduleIDs   []uuid.UUID       `validate:"dive,required"`
	CreditNoteIDs []uuid.UUID       `validate:"dive,required"`
}

// ApplyPaymentResult reports what one apply-payment call booked
type ApplyPaymentResult struct {
	PaymentID        *uuid.UUID        `json:"payment_id,omitempty"`
	VirtualPayments  []uuid.UUID       `json:"virtual_payments,omitempty"`
	CashTotal        valueobject.Money `json:"cash_total"`
	OffsetTotal      valueobject.Money `json:"offset_total"`
	UnallocatedCash  valueobject.Money `json:"unallocated_cash"`
	SettledSchedules []uuid.UUID       `json:"settled_schedules,omitempty"`
}

// ApplyPayment applies a payment and/or a set of credit notes to the selected
// schedules. Credit notes are consumed before cash; within each phase the
// schedules are walked FIFO by due date. The whole call commits atomically.
func (s *Service) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*ApplyPaymentResult, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	subject, err := s.subjects.FindByID(ctx, req.SubjectID)
	if err != nil {
		return nil, err
	}

	schedules, docs, err := s.loadSelection(ctx, subject.ID, req.ScheduleIDs)
	if err != nil {
		return nil, err
	}
	notes, err := s.loadCreditNotes(ctx, subject.ID, req.CreditNoteIDs)
	if err != nil {
		return nil, err
	}

	direction, err := resolveDirection(subject, docs)
	if err != nil {
		return nil, err
	}

	cash := valueobject.Zero()
	if req.Total.IsPositive() {
		cash = req.Total.Sub(req.Accessories)
	}
	payment.SortCreditNotesByDate(notes)
	plan, err := payment.Allocate(schedules, notes, cash)
	if err != nil {
		return nil, err
	}

	result := &ApplyPaymentResult{
		CashTotal:        plan.CashTotal,
		OffsetTotal:      plan.OffsetTotal,
		UnallocatedCash:  plan.UnallocatedCash,
		SettledSchedules: plan.SettledSchedules,
	}

	var toSave []*payment.Payment
	for creditNoteID, offsets := range plan.OffsetsByCreditNote() {
		virtual, err := payment.NewVirtualPayment(subject.ID, req.Date)
		if err != nil {
			return nil, err
		}
		for _, o := range offsets {
			if err := virtual.AssociateOffset(o.DocumentID, creditNoteID, o.Amount); err != nil {
				return nil, err
			}
		}
		toSave = append(toSave, virtual)
		result.VirtualPayments = append(result.VirtualPayments, virtual.ID)
	}

	if req.Total.IsPositive() {
		cashPayment, err := payment.NewPayment(subject.ID, req.Date, req.Modality, direction, req.Total, req.Accessories)
		if err != nil {
			return nil, err
		}
		for _, alloc := range plan.Cash {
			if err := cashPayment.Associate(alloc.DocumentID, alloc.Amount); err != nil {
				return nil, err
			}
		}
		toSave = append(toSave, cashPayment)
		result.PaymentID = &cashPayment.ID
	}

	if len(toSave) == 0 {
		return nil, shared.ErrEmptySelection
	}

	if err := s.payments.SaveApplication(ctx, toSave, plan.SettledSchedules); err != nil {
		return nil, err
	}

	s.logger.Info("payment applied",
		zap.String("subject", subject.Code),
		zap.String("cash", plan.CashTotal.String()),
		zap.String("offsets", plan.OffsetTotal.String()),
		zap.Int("settled_schedules", len(plan.SettledSchedules)),
	)
	return result, nil
}

// DeleteDocument releases the document's declaration-of-intent consumption
// and removes associations, schedules, RiBa rows and the document itself.
func (s *Service) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	doc, err := s.documents.FindByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.intents.ReleaseForDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.documents.Delete(ctx, documentID); err != nil {
		return err
	}
	s.logger.Info("document deleted",
		zap.String("number", doc.Number),
		zap.String("class", string(doc.Class)),
	)
	return nil
}

func (s *Service) validateRequest(req ApplyPaymentRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return shared.NewDomainError("VALIDATION_FAILED", err.Error())
	}
	if req.Date.IsZero() {
		return shared.NewDomainError("INVALID_DATE", "Payment date must be a valid calendar date")
	}
	if req.Total.IsNegative() || req.Accessories.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amounts cannot be negative")
	}
	if req.Accessories.GreaterThan(req.Total) {
		return shared.NewDomainError("INVALID_AMOUNT", "Accessory fees cannot exceed the payment total")
	}
	if len(req.ScheduleIDs) == 0 {
		return shared.ErrEmptySelection
	}
	if !req.Total.IsPositive() && len(req.CreditNoteIDs) == 0 {
		return shared.NewDomainError("INVALID_AMOUNT", "A zero payment needs at least one credit note")
	}
	return nil
}

// loadSelection resolves the selected schedules into allocation states with
// residuals derived FIFO from the document-level association totals.
func (s *Service) loadSelection(ctx context.Context, subjectID uuid.UUID, scheduleIDs []uuid.UUID) ([]payment.ScheduleState, []*billing.Document, error) {
	schedules, err := s.documents.FindSchedules(ctx, scheduleIDs)
	if err != nil {
		return nil, nil, err
	}
	if len(schedules) != len(scheduleIDs) {
		return nil, nil, shared.NewDomainError("INVALID_SELECTION", "One or more selected schedules do not exist")
	}

	byDocument := make(map[uuid.UUID]*billing.Document)
	docIDs := make([]uuid.UUID, 0, len(schedules))
	for _, sc := range schedules {
		if _, seen := byDocument[sc.DocumentID]; seen {
			continue
		}
		doc, err := s.documents.FindByID(ctx, sc.DocumentID)
		if err != nil {
			return nil, nil, err
		}
		if doc.SubjectID != subjectID {
			return nil, nil, shared.NewDomainError("INVALID_SELECTION",
				fmt.Sprintf("Document %s belongs to another subject", doc.Number))
		}
		byDocument[doc.ID] = doc
		docIDs = append(docIDs, doc.ID)
	}

	totals, err := s.documents.Allocations(ctx, docIDs)
	if err != nil {
		return nil, nil, err
	}

	residuals := make(map[uuid.UUID]valueobject.Money, len(schedules))
	for id, doc := range byDocument {
		t := totals[id]
		for scheduleID, residual := range doc.ScheduleResiduals(t.Paid, t.Offset) {
			residuals[scheduleID] = residual
		}
	}

	states := make([]payment.ScheduleState, 0, len(schedules))
	docs := make([]*billing.Document, 0, len(byDocument))
	for _, sc := range schedules {
		states = append(states, payment.ScheduleState{
			ScheduleID: sc.ID,
			DocumentID: sc.DocumentID,
			DueDate:    sc.DueDate,
			Residual:   residuals[sc.ID],
		})
	}
	for _, doc := range byDocument {
		docs = append(docs, doc)
	}
	return states, docs, nil
}

func (s *Service) loadCreditNotes(ctx context.Context, subjectID uuid.UUID, creditNoteIDs []uuid.UUID) ([]payment.CreditNoteState, error) {
	if len(creditNoteIDs) == 0 {
		return nil, nil
	}
	totals, err := s.documents.Allocations(ctx, creditNoteIDs)
	if err != nil {
		return nil, err
	}

	states := make([]payment.CreditNoteState, 0, len(creditNoteIDs))
	for _, id := range creditNoteIDs {
		note, err := s.documents.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if note.SubjectID != subjectID {
			return nil, shared.NewDomainError("INVALID_SELECTION",
				fmt.Sprintf("Credit note %s belongs to another subject", note.Number))
		}
		if !note.Class.IsCreditNote() {
			return nil, shared.NewDomainError("INVALID_SELECTION",
				fmt.Sprintf("Document %s is not a credit note", note.Number))
		}
		t := totals[id]
		states = append(states, payment.CreditNoteState{
			DocumentID:   note.ID,
			DocumentDate: note.DocumentDate,
			Residual:     note.Residual(t.Paid, t.Offset),
		})
	}
	return states, nil
}

// resolveDirection derives the cash direction from the subject kind; BOTH
// subjects take it from the sign of the selected documents, which must agree.
func resolveDirection(subject *anagrafica.Subject, docs []*billing.Document) (payment.Direction, error) {
	switch subject.Kind {
	case anagrafica.SubjectKindClient:
		return payment.DirectionReceipt, nil
	case anagrafica.SubjectKindSupplier:
		return payment.DirectionDisbursement, nil
	}

	sign := 0
	for _, doc := range docs {
		if sign == 0 {
			sign = doc.Sign
			continue
		}
		if doc.Sign != sign {
			return "", shared.ErrMixedDirection
		}
	}
	if sign < 0 {
		return payment.DirectionDisbursement, nil
	}
	return payment.DirectionReceipt, nil
}
