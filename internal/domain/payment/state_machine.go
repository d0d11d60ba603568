package payment

import (
	"time"

	"github.com/google/uuid"
)

// legalTransitions is the closed transition table for the settlement
// lifecycle. FAILED and CANCELLED are additionally reachable from any
// non-terminal state (FAILED only via bank rejection handled below,
// CANCELLED via explicit cancellation).
var legalTransitions = map[Status][]Status{
	StatusReadyForPayment:   {StatusBankFileGenerated, StatusCancelled},
	StatusBankFileGenerated: {StatusSentToBank, StatusCancelled},
	StatusSentToBank:        {StatusBankProcessing, StatusCancelled},
	StatusBankProcessing:    {StatusCompleted, StatusFailed, StatusCancelled},
}

// CanTransition reports whether moving from the payment's current status to
// the target status is legal.
func (p *Payment) CanTransition(to Status) bool {
	for _, allowed := range legalTransitions[p.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition moves the payment to the target status and returns the timeline
// event recording the move. On an illegal transition the payment is left
// untouched and an IllegalTransitionError is returned.
func (p *Payment) Transition(to Status, actor string) (*TimelineEvent, error) {
	if !p.CanTransition(to) {
		return nil, IllegalTransitionError{PaymentID: p.ID.String(), From: p.Status, To: to}
	}

	from := p.Status
	now := time.Now().UTC()
	p.Status = to

	switch to {
	case StatusBankProcessing:
		p.ProcessedAt = &now
	case StatusCompleted, StatusFailed, StatusCancelled:
		p.CompletedAt = &now
	}

	return newTimelineEvent(p, from, to, actor, now), nil
}

// Fail moves the payment to FAILED recording the bank's error message
func (p *Payment) Fail(actor, errorMessage string) (*TimelineEvent, error) {
	event, err := p.Transition(StatusFailed, actor)
	if err != nil {
		return nil, err
	}
	p.ErrorMessage = errorMessage
	event.Detail = errorMessage
	return event, nil
}

// Cancel moves the payment to CANCELLED from any non-terminal state
func (p *Payment) Cancel(actor string) (*TimelineEvent, error) {
	return p.Transition(StatusCancelled, actor)
}

// AssignBatch claims the payment for a batch and moves it to
// BANK_FILE_GENERATED in one step. A payment can only ever be claimed once.
func (p *Payment) AssignBatch(batchID uuid.UUID, actor string) (*TimelineEvent, error) {
	if p.BatchID != nil {
		return nil, ErrAlreadyClaimed
	}

	event, err := p.Transition(StatusBankFileGenerated, actor)
	if err != nil {
		return nil, err
	}
	p.BatchID = &batchID
	event.BatchID = &batchID
	return event, nil
}

// UnassignBatch reverts a claim during batch creation rollback. Only valid
// while the payment is still in BANK_FILE_GENERATED.
func (p *Payment) UnassignBatch() {
	if p.Status == StatusBankFileGenerated {
		p.Status = StatusReadyForPayment
		p.BatchID = nil
	}
}
