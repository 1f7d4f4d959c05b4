package ops

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"memberdesk/internal/domain"
	dErrors "memberdesk/pkg/domain-errors"
)

// IssueCard constructs a fresh card from a catalog card type and sets it on
// the member. The card copies the type's fields by value; later catalog
// edits do not touch issued cards.
func (s *Service) IssueCard(memberID, cardTypeID, operator string) (*domain.Card, error) {
	cardTypes, err := readCollection[domain.CardType](s.cache, domain.CardTypes)
	if err != nil {
		return nil, err
	}
	var cardType *domain.CardType
	for i := range cardTypes {
		if cardTypes[i].ID == cardTypeID {
			cardType = &cardTypes[i]
			break
		}
	}
	if cardType == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "card type not found")
	}
	if !cardType.Active {
		return nil, dErrors.New(dErrors.CodeValidation, "card type is not active")
	}

	members, err := readCollection[domain.Member](s.cache, domain.Members)
	if err != nil {
		return nil, err
	}
	i, err := findMember(members, memberID)
	if err != nil {
		return nil, err
	}

	card := domain.Card{
		ID:             s.newID(),
		TypeName:       cardType.Name,
		TotalCount:     cardType.Count,
		UsedCount:      0,
		RemainingCount: cardType.Count,
		ExpiresAt:      s.now().Add(time.Duration(cardType.ValidityDays) * 24 * time.Hour),
	}
	members[i].Card = &card

	batch := make(map[domain.CollectionName][]json.RawMessage)
	if batch[domain.Members], err = encodeCollection(domain.Members, members); err != nil {
		return nil, err
	}
	detail := fmt.Sprintf("card %s (%s) for member %s", card.ID, card.TypeName, memberID)
	if err := s.appendLog(batch, operator, "issueCard", detail); err != nil {
		return nil, err
	}
	if err := s.cache.WriteBatch(batch); err != nil {
		return nil, err
	}
	return &card, nil
}

// ListCardTypes returns the card catalog.
func (s *Service) ListCardTypes() ([]domain.CardType, error) {
	return readCollection[domain.CardType](s.cache, domain.CardTypes)
}

// AddCardTypeParams describes a new catalog entry.
type AddCardTypeParams struct {
	Name         string
	Price        float64
	Count        int
	ValidityDays int
	Operator     string
}

// AddCardType adds an active entry to the card catalog.
func (s *Service) AddCardType(p AddCardTypeParams) (*domain.CardType, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "card type name is required")
	}
	if p.Count <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "card count must be positive")
	}
	if p.ValidityDays <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "validity days must be positive")
	}

	cardTypes, err := readCollection[domain.CardType](s.cache, domain.CardTypes)
	if err != nil {
		return nil, err
	}
	cardType := domain.CardType{
		ID:           s.newID(),
		Name:         strings.TrimSpace(p.Name),
		Price:        p.Price,
		Count:        p.Count,
		ValidityDays: p.ValidityDays,
		Active:       true,
	}
	cardTypes = append(cardTypes, cardType)

	batch := make(map[domain.CollectionName][]json.RawMessage)
	if batch[domain.CardTypes], err = encodeCollection(domain.CardTypes, cardTypes); err != nil {
		return nil, err
	}
	if err := s.appendLog(batch, p.Operator, "addCardType", "card type "+cardType.Name); err != nil {
		return nil, err
	}
	if err := s.cache.WriteBatch(batch); err != nil {
		return nil, err
	}
	return &cardType, nil
}

// DeactivateCardType retires a catalog entry without touching already
// issued cards.
func (s *Service) DeactivateCardType(cardTypeID, operator string) error {
	cardTypes, err := readCollection[domain.CardType](s.cache, domain.CardTypes)
	if err != nil {
		return err
	}
	found := false
	for i := range cardTypes {
		if cardTypes[i].ID == cardTypeID {
			cardTypes[i].Active = false
			found = true
			break
		}
	}
	if !found {
		return dErrors.New(dErrors.CodeNotFound, "card type not found")
	}

	batch := make(map[domain.CollectionName][]json.RawMessage)
	if batch[domain.CardTypes], err = encodeCollection(domain.CardTypes, cardTypes); err != nil {
		return err
	}
	if err := s.appendLog(batch, operator, "deactivateCardType", "card type "+cardTypeID); err != nil {
		return err
	}
	return s.cache.WriteBatch(batch)
}
