package payment

import (
	"sort"

	"github.com/gestionale/backend/internal/domain/shared"
	"github.com/gestionale/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ScheduleState is the in-memory residual of one selected schedule while an
// allocation is being planned.
type ScheduleState struct {
	ScheduleID uuid.UUID
	DocumentID uuid.UUID
	DueDate    valueobject.Date
	Residual   valueobject.Money
}

// CreditNoteState is the in-memory residual of one selected credit note
type CreditNoteState struct {
	DocumentID   uuid.UUID
	DocumentDate valueobject.Date
	Residual     valueobject.Money
}

// Offset is one planned credit-note application: amount consumed from the
// credit note against the invoice document. Persisting it generates the
// symmetric association pair.
type Offset struct {
	CreditNoteID uuid.UUID
	DocumentID   uuid.UUID
	Amount       valueobject.Money
}

// CashAllocation is one planned PAYMENT association
type CashAllocation struct {
	ScheduleID uuid.UUID
	DocumentID uuid.UUID
	Amount     valueobject.Money
}

// Plan is the outcome of the pure allocation pass: credit-note offsets first,
// then cash, FIFO by due date within each phase.
type Plan struct {
	Offsets         []Offset
	Cash            []CashAllocation
	OffsetTotal     valueobject.Money
	CashTotal       valueobject.Money
	UnallocatedCash valueobject.Money
	// SettledSchedules are the schedules whose residual collapsed within
	// tolerance; RiBa items attached to them transition to PAID.
	SettledSchedules []uuid.UUID
}

// SortSchedulesFIFO orders schedules by due date ascending, ties broken by
// schedule id ascending so the walk is deterministic.
func SortSchedulesFIFO(schedules []ScheduleState) {
	sort.SliceStable(schedules, func(i, j int) bool {
		if !schedules[i].DueDate.Equal(schedules[j].DueDate) {
			return schedules[i].DueDate.Before(schedules[j].DueDate)
		}
		return schedules[i].ScheduleID.String() < schedules[j].ScheduleID.String()
	})
}

// SortCreditNotesByDate orders credit notes by document date ascending
// (the apply-payment ordering).
func SortCreditNotesByDate(notes []CreditNoteState) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].DocumentDate.Before(notes[j].DocumentDate)
	})
}

// SortCreditNotesByAmountDesc orders credit notes largest residual first
// (the distinta-emission ordering).
func SortCreditNotesByAmountDesc(notes []CreditNoteState) {
	sort.SliceStable(notes, func(i, j int) bool {
		return notes[i].Residual.GreaterThan(notes[j].Residual)
	})
}

// Allocate runs the two allocation phases over the selected schedules:
//
//  1. credit-note phase: each note, in the order given, is consumed FIFO
//     against the schedules until either side is exhausted;
//  2. cash phase: the allocatable cash walks the (reduced) schedules FIFO.
//
// Schedules are re-sorted FIFO internally; credit notes keep the caller's
// order so both orderings (by date, largest-first) share one implementation.
// Cash left over after the last schedule stays unallocated on the payment.
func Allocate(schedules []ScheduleState, creditNotes []CreditNoteState, cash valueobject.Money) (*Plan, error) {
	if cash.Amount().IsNegative() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Allocatable cash cannot be negative")
	}
	for _, s := range schedules {
		if !s.Residual.IsPositive() {
			return nil, shared.NewDomainError("INVALID_SELECTION", "Selected schedules must have a positive residual")
		}
	}
	for _, cn := range creditNotes {
		if !cn.Residual.IsPositive() {
			return nil, shared.NewDomainError("INVALID_SELECTION", "Selected credit notes must have a positive residual")
		}
	}

	working := make([]ScheduleState, len(schedules))
	copy(working, schedules)
	SortSchedulesFIFO(working)

	plan := &Plan{
		OffsetTotal:     valueobject.Zero(),
		CashTotal:       valueobject.Zero(),
		UnallocatedCash: valueobject.Zero(),
	}

	for _, cn := range creditNotes {
		remaining := cn.Residual
		for i := range working {
			if !remaining.IsPositive() {
				break
			}
			if !working[i].Residual.IsPositive() {
				continue
			}
			applied := remaining.Min(working[i].Residual)
			plan.Offsets = append(plan.Offsets, Offset{
				CreditNoteID: cn.DocumentID,
				DocumentID:   working[i].DocumentID,
				Amount:       applied,
			})
			plan.OffsetTotal = plan.OffsetTotal.Add(applied)
			working[i].Residual = working[i].Residual.Sub(applied)
			remaining = remaining.Sub(applied)
		}
	}

	remaining := cash
	for i := range working {
		if !remaining.IsPositive() {
			break
		}
		if !working[i].Residual.IsPositive() {
			continue
		}
		applied := remaining.Min(working[i].Residual)
		plan.Cash = append(plan.Cash, CashAllocation{
			ScheduleID: working[i].ScheduleID,
			DocumentID: working[i].DocumentID,
			Amount:     applied,
		})
		plan.CashTotal = plan.CashTotal.Add(applied)
		working[i].Residual = working[i].Residual.Sub(applied)
		remaining = remaining.Sub(applied)
	}
	plan.UnallocatedCash = cash.Sub(plan.CashTotal)

	for _, s := range working {
		if s.Residual.IsSettled() {
			plan.SettledSchedules = append(plan.SettledSchedules, s.ScheduleID)
		}
	}

	return plan, nil
}

// OffsetsByCreditNote groups the planned offsets per consumed credit note
func (p *Plan) OffsetsByCreditNote() map[uuid.UUID][]Offset {
	grouped := make(map[uuid.UUID][]Offset)
	for _, o := range p.Offsets {
		grouped[o.CreditNoteID] = append(grouped[o.CreditNoteID], o)
	}
	return grouped
}
