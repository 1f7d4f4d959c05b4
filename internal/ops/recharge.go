package ops

import (
	"encoding/json"
	"fmt"

	"memberdesk/internal/domain"
	dErrors "memberdesk/pkg/domain-errors"
)

// AddRechargeParams describes a balance top-up.
type AddRechargeParams struct {
	MemberID      string
	Amount        float64
	PaymentMethod string
	Operator      string
}

// AddRecharge appends a recharge record and raises the member's balance.
// Both collections are replaced in one in-memory batch; their persists are
// still independent and may land on the server in any order.
func (s *Service) AddRecharge(p AddRechargeParams) (*domain.RechargeRecord, error) {
	if p.Amount <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "recharge amount must be positive")
	}

	members, err := readCollection[domain.Member](s.cache, domain.Members)
	if err != nil {
		return nil, err
	}
	i, err := findMember(members, p.MemberID)
	if err != nil {
		return nil, err
	}

	members[i].Balance += p.Amount
	record := domain.RechargeRecord{
		ID:            s.newID(),
		MemberID:      p.MemberID,
		Amount:        p.Amount,
		Balance:       members[i].Balance,
		PaymentMethod: p.PaymentMethod,
		CreatedAt:     s.now(),
		Operator:      p.Operator,
	}

	recharges, err := readCollection[domain.RechargeRecord](s.cache, domain.Recharges)
	if err != nil {
		return nil, err
	}
	recharges = append(recharges, record)

	batch := make(map[domain.CollectionName][]json.RawMessage)
	if batch[domain.Members], err = encodeCollection(domain.Members, members); err != nil {
		return nil, err
	}
	if batch[domain.Recharges], err = encodeCollection(domain.Recharges, recharges); err != nil {
		return nil, err
	}
	detail := fmt.Sprintf("member %s +%.2f, balance %.2f", p.MemberID, p.Amount, record.Balance)
	if err := s.appendLog(batch, p.Operator, "addRecharge", detail); err != nil {
		return nil, err
	}
	if err := s.cache.WriteBatch(batch); err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecharges returns all recharge records.
func (s *Service) ListRecharges() ([]domain.RechargeRecord, error) {
	return readCollection[domain.RechargeRecord](s.cache, domain.Recharges)
}
