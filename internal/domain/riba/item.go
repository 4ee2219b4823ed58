package riba

import (
	"fmt"

	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CollectionState represents the lifecycle state of a RiBa item
type CollectionState string

const (
	StateToEmit  CollectionState = "TO_EMIT"
	StateEmitted CollectionState = "EMITTED"
	StatePaid    CollectionState = "PAID"
)

// IsValid checks if the state is a valid CollectionState
func (s CollectionState) IsValid() bool {
	switch s {
	case StateToEmit, StateEmitted, StatePaid:
		return true
	}
	return false
}

// String returns the string representation of CollectionState
func (s CollectionState) String() string {
	return string(s)
}

// IsTerminal returns true for PAID, the only terminal state
func (s CollectionState) IsTerminal() bool {
	return s == StatePaid
}

// Item tracks the bank-collection lifecycle of one RIBA schedule.
// One item exists per schedule whose payment modality is RIBA.
type Item struct {
	shared.BaseAggregateRoot
	ScheduleID     uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex"`
	DocumentID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	State          CollectionState  `gorm:"type:varchar(10);not null;index"`
	DistintaID     *uuid.UUID       `gorm:"type:uuid;index"`
	EmissionNumber string           `gorm:"type:varchar(20)"`
	EmissionDate   valueobject.Date `gorm:"type:date"`
	EmissionBank   string           `gorm:"type:varchar(100)"`
}

// TableName returns the table name for GORM
func (Item) TableName() string {
	return "riba_items"
}

// NewItem creates an item in TO_EMIT for a RIBA schedule
func NewItem(scheduleID, documentID uuid.UUID) (*Item, error) {
	if scheduleID == uuid.Nil || documentID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SCHEDULE", "Schedule and document IDs cannot be empty")
	}
	return &Item{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ScheduleID:        scheduleID,
		DocumentID:        documentID,
		State:             StateToEmit,
	}, nil
}

// Emit attaches the item to a distinta and stamps the emission metadata
func (i *Item) Emit(distintaID uuid.UUID, number string, date valueobject.Date, bank string) error {
	if i.State != StateToEmit {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot emit RiBa item in %s state", i.State))
	}
	if distintaID == uuid.Nil {
		return shared.NewDomainError("INVALID_DISTINTA", "Distinta ID cannot be empty")
	}
	i.DistintaID = &distintaID
	i.EmissionNumber = number
	i.EmissionDate = date
	i.EmissionBank = bank
	i.State = StateEmitted
	i.IncrementVersion()
	return nil
}

// Restamp refreshes the emission metadata on an already emitted item when
// its distinta is renamed or moved to another bank or date.
func (i *Item) Restamp(number string, date valueobject.Date, bank string) error {
	if i.State != StateEmitted {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot restamp RiBa item in %s state", i.State))
	}
	i.EmissionNumber = number
	i.EmissionDate = date
	i.EmissionBank = bank
	i.IncrementVersion()
	return nil
}

// Unwind detaches the item from its distinta and returns it to TO_EMIT with
// cleared emission metadata.
func (i *Item) Unwind() error {
	if i.State != StateEmitted {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot unwind RiBa item in %s state", i.State))
	}
	i.DistintaID = nil
	i.EmissionNumber = ""
	i.EmissionDate = valueobject.Date{}
	i.EmissionBank = ""
	i.State = StateToEmit
	i.IncrementVersion()
	return nil
}

// DetachDistinta drops the reference to a distinta being deleted while
// keeping the emission stamps as collection history. Only meaningful on
// PAID items; EMITTED ones go through Unwind instead.
func (i *Item) DetachDistinta() {
	if i.DistintaID == nil {
		return
	}
	i.DistintaID = nil
	i.IncrementVersion()
}

// MarkPaid transitions the item to the terminal state. Valid from both
// TO_EMIT (settled by a direct payment) and EMITTED (collected by the bank).
func (i *Item) MarkPaid() error {
	if i.State == StatePaid {
		return nil
	}
	i.State = StatePaid
	i.IncrementVersion()
	return nil
}
