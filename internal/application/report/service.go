package reportapp

import (
	"context"

	"github.com/gestionale/backend/internal/domain/billing"
	"github.com/gestionale/backend/internal/domain/intent"
	"github.com/gestionale/backend/internal/domain/report"
	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service exposes the read side (aged positions, movements, account cards)
// and the declaration-of-intent follow-up step.
type Service struct {
	reports   report.Repository
	documents billing.DocumentRepository
	intents   intent.Repository
	logger    *zap.Logger
}

// NewService creates a report Service
func NewService(
	reports report.Repository,
	documents billing.DocumentRepository,
	intents intent.Repository,
	logger *zap.Logger,
) *Service {
	return &Service{
		reports:   reports,
		documents: documents,
		intents:   intents,
		logger:    logger,
	}
}

// OverdueClients returns the aged client positions as of today
func (s *Service) OverdueClients(ctx context.Context) ([]report.OverduePosition, error) {
	return s.reports.OverdueClients(ctx)
}

// OverdueSuppliers returns the aged supplier positions as of today
func (s *Service) OverdueSuppliers(ctx context.Context) ([]report.OverduePosition, error) {
	return s.reports.OverdueSuppliers(ctx)
}

// Movements returns the chronological ledger of a subject
func (s *Service) Movements(ctx context.Context, subjectID uuid.UUID) ([]report.Movement, error) {
	return s.reports.Movements(ctx, subjectID)
}

// AccountCard returns the subject's documents with derived residuals and
// statuses as of the given date
func (s *Service) AccountCard(ctx context.Context, subjectID uuid.UUID, asOf valueobject.Date) ([]report.AccountCardEntry, error) {
	return s.reports.AccountCard(ctx, subjectID, asOf)
}

// PendingIntentDocument is one imported document waiting for plafond linking
type PendingIntentDocument struct {
	DocumentID  uuid.UUID         `json:"document_id"`
	SubjectID   uuid.UUID         `json:"subject_id"`
	Number      string            `json:"number"`
	Date        valueobject.Date  `json:"date"`
	TaxableBase valueobject.Money `json:"taxable_base"`
}

// PendingIntent lists the documents flagged with a declaration of intent
// that has not been bound to a plafond yet
func (s *Service) PendingIntent(ctx context.Context) ([]PendingIntentDocument, error) {
	docs, err := s.documents.PendingIntent(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]PendingIntentDocument, 0, len(docs))
	for _, doc := range docs {
		pending = append(pending, PendingIntentDocument{
			DocumentID:  doc.ID,
			SubjectID:   doc.SubjectID,
			Number:      doc.Number,
			Date:        doc.DocumentDate,
			TaxableBase: doc.TaxableBase,
		})
	}
	return pending, nil
}

// LinkDocuments binds the given documents to a declaration of intent,
// consuming their taxable base from the plafond. The whole bulk commits
// atomically; a plafond overrun fails the call.
func (s *Service) LinkDocuments(ctx context.Context, declarationID uuid.UUID, documentIDs []uuid.UUID) error {
	if len(documentIDs) == 0 {
		return shared.ErrEmptySelection
	}
	declaration, err := s.intents.FindByID(ctx, declarationID)
	if err != nil {
		return err
	}

	consumptions := make([]*intent.Consumption, 0, len(documentIDs))
	for _, id := range documentIDs {
		doc, err := s.documents.FindByID(ctx, id)
		if err != nil {
			return err
		}
		consumption, err := declaration.Consume(doc.ID, doc.TaxableBase)
		if err != nil {
			return err
		}
		consumptions = append(consumptions, consumption)
	}

	if err := s.intents.Link(ctx, declaration, consumptions); err != nil {
		return err
	}
	s.logger.Info("declaration linked",
		zap.String("protocol", declaration.Protocol),
		zap.Int("documents", len(consumptions)),
		zap.String("residual_plafond", declaration.Residual().String()),
	)
	return nil
}

// RegisterDeclaration records a new declaration of intent
func (s *Service) RegisterDeclaration(ctx context.Context, subjectID uuid.UUID, protocol string, date valueobject.Date, plafond valueobject.Money) (*intent.Declaration, error) {
	declaration, err := intent.NewDeclaration(subjectID, protocol, date, plafond)
	if err != nil {
		return nil, err
	}
	if err := s.intents.Create(ctx, declaration); err != nil {
		return nil, err
	}
	return declaration, nil
}
