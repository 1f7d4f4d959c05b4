package ops

import (
	"encoding/json"
	"fmt"
	"strings"

	"memberdesk/internal/domain"
	dErrors "memberdesk/pkg/domain-errors"
)

// AddMemberParams carries the caller-supplied fields of a new member.
type AddMemberParams struct {
	Name     string
	Phone    string
	Operator string
}

// AddMember registers a new active member with a zero balance.
func (s *Service) AddMember(p AddMemberParams) (*domain.Member, error) {
	if strings.TrimSpace(p.Name) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "member name is required")
	}

	members, err := readCollection[domain.Member](s.cache, domain.Members)
	if err != nil {
		return nil, err
	}

	member := domain.Member{
		ID:       s.newID(),
		Name:     strings.TrimSpace(p.Name),
		Phone:    strings.TrimSpace(p.Phone),
		JoinDate: s.now(),
		Balance:  0,
		Status:   domain.MemberStatusActive,
	}
	members = append(members, member)

	batch := make(map[domain.CollectionName][]json.RawMessage)
	if batch[domain.Members], err = encodeCollection(domain.Members, members); err != nil {
		return nil, err
	}
	if err := s.appendLog(batch, p.Operator, "addMember", fmt.Sprintf("member %s (%s)", member.Name, member.ID)); err != nil {
		return nil, err
	}
	if err := s.cache.WriteBatch(batch); err != nil {
		return nil, err
	}
	return &member, nil
}

// UpdateMemberParams carries the mutable member fields. Empty fields are
// left unchanged.
type UpdateMemberParams struct {
	Name     string
	Phone    string
	Operator string
}

// UpdateMember edits a member's contact fields.
func (s *Service) UpdateMember(memberID string, p UpdateMemberParams) (*domain.Member, error) {
	members, err := readCollection[domain.Member](s.cache, domain.Members)
	if err != nil {
		return nil, err
	}
	i, err := findMember(members, memberID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		members[i].Name = name
	}
	if phone := strings.TrimSpace(p.Phone); phone != "" {
		members[i].Phone = phone
	}

	batch := make(map[domain.CollectionName][]json.RawMessage)
	if batch[domain.Members], err = encodeCollection(domain.Members, members); err != nil {
		return nil, err
	}
	if err := s.appendLog(batch, p.Operator, "updateMember", "member "+memberID); err != nil {
		return nil, err
	}
	if err := s.cache.WriteBatch(batch); err != nil {
		return nil, err
	}
	updated := members[i]
	return &updated, nil
}

// DeactivateMember marks a member inactive. History stays attributable, so
// members are never deleted outright.
func (s *Service) DeactivateMember(memberID, operator string) error {
	members, err := readCollection[domain.Member](s.cache, domain.Members)
	if err != nil {
		return err
	}
	i, err := findMember(members, memberID)
	if err != nil {
		return err
	}
	members[i].Status = domain.MemberStatusInactive

	batch := make(map[domain.CollectionName][]json.RawMessage)
	if batch[domain.Members], err = encodeCollection(domain.Members, members); err != nil {
		return err
	}
	if err := s.appendLog(batch, operator, "deactivateMember", "member "+memberID); err != nil {
		return err
	}
	return s.cache.WriteBatch(batch)
}

// ListMembers returns all members.
func (s *Service) ListMembers() ([]domain.Member, error) {
	return readCollection[domain.Member](s.cache, domain.Members)
}

// SearchMembers filters by case-insensitive substring over name and
// substring over phone. The result is a fresh filtered view over the
// cache's current contents; nothing is persisted.
func (s *Service) SearchMembers(query string) ([]domain.Member, error) {
	members, err := readCollection[domain.Member](s.cache, domain.Members)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return members, nil
	}
	lowered := strings.ToLower(query)
	matched := make([]domain.Member, 0, len(members))
	for _, m := range members {
		if strings.Contains(strings.ToLower(m.Name), lowered) || strings.Contains(m.Phone, query) {
			matched = append(matched, m)
		}
	}
	return matched, nil
}
