package ops

import (
	"encoding/json"
	"fmt"

	"memberdesk/internal/domain"
	dErrors "memberdesk/pkg/domain-errors"
)

// PaymentMethodBalance settles a consumption against the member's stored
// balance instead of cash.
const PaymentMethodBalance = "balance"

// AddConsumptionParams describes one service charge.
type AddConsumptionParams struct {
	MemberID      string
	Amount        float64
	Category      string
	PaymentMethod string
	UsedCard      bool
	Operator      string
}

// AddConsumption appends a consumption record. With UsedCard set the charge
// burns one card count; with the balance payment method it debits the
// member's balance. Validation happens before any collection is touched, so
// a rejected consumption mutates nothing.
func (s *Service) AddConsumption(p AddConsumptionParams) (*domain.ConsumptionRecord, error) {
	if p.Amount < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "consumption amount must not be negative")
	}

	members, err := readCollection[domain.Member](s.cache, domain.Members)
	if err != nil {
		return nil, err
	}
	i, err := findMember(members, p.MemberID)
	if err != nil {
		return nil, err
	}
	member := &members[i]

	switch {
	case p.UsedCard:
		card := member.Card
		if card == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "no card to consume against")
		}
		if card.RemainingCount <= 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "card has no remaining count")
		}
		if card.Expired(s.now()) {
			return nil, dErrors.New(dErrors.CodeValidation, "card has expired")
		}
		card.UsedCount++
		card.RemainingCount--
	case p.PaymentMethod == PaymentMethodBalance:
		if member.Balance < p.Amount {
			return nil, dErrors.New(dErrors.CodeValidation, "insufficient balance")
		}
		member.Balance -= p.Amount
	}

	record := domain.ConsumptionRecord{
		ID:            s.newID(),
		MemberID:      p.MemberID,
		Amount:        p.Amount,
		Category:      p.Category,
		PaymentMethod: p.PaymentMethod,
		UsedCard:      p.UsedCard,
		Status:        domain.ConsumptionStatusCompleted,
		CreatedAt:     s.now(),
		Operator:      p.Operator,
	}

	consumptions, err := readCollection[domain.ConsumptionRecord](s.cache, domain.Consumptions)
	if err != nil {
		return nil, err
	}
	consumptions = append(consumptions, record)

	batch := make(map[domain.CollectionName][]json.RawMessage)
	if batch[domain.Members], err = encodeCollection(domain.Members, members); err != nil {
		return nil, err
	}
	if batch[domain.Consumptions], err = encodeCollection(domain.Consumptions, consumptions); err != nil {
		return nil, err
	}
	detail := fmt.Sprintf("member %s %s %.2f", p.MemberID, p.Category, p.Amount)
	if err := s.appendLog(batch, p.Operator, "addConsumption", detail); err != nil {
		return nil, err
	}
	if err := s.cache.WriteBatch(batch); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListConsumptions returns all consumption records.
func (s *Service) ListConsumptions() ([]domain.ConsumptionRecord, error) {
	return readCollection[domain.ConsumptionRecord](s.cache, domain.Consumptions)
}
