package ops

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"memberdesk/internal/cache"
	"memberdesk/internal/domain"
	"memberdesk/internal/store"
	dErrors "memberdesk/pkg/domain-errors"
)

// The ops suite runs against a real cache backed by the in-memory store,
// so every operation exercises the same read/write-batch path production
// uses.
type OpsSuite struct {
	suite.Suite
	store   *store.Memory
	cache   *cache.Cache
	service *Service
	now     time.Time
}

func (s *OpsSuite) SetupTest() {
	s.store = store.NewMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.cache = cache.New(s.store, logger, cache.WithRetry(1, 0))
	s.Require().NoError(s.cache.Connect(context.Background(), false))

	s.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	seq := 0
	s.service = NewService(s.cache, logger,
		WithClock(func() time.Time { return s.now }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		}),
	)
}

func TestOpsSuite(t *testing.T) {
	suite.Run(t, new(OpsSuite))
}

func (s *OpsSuite) seedMember(member domain.Member) {
	members, err := readCollection[domain.Member](s.cache, domain.Members)
	s.Require().NoError(err)
	members = append(members, member)
	raw, err := domain.EncodeRecords(members)
	s.Require().NoError(err)
	s.Require().NoError(s.cache.Write(domain.Members, raw))
}

func (s *OpsSuite) seedCardType(ct domain.CardType) {
	cardTypes, err := readCollection[domain.CardType](s.cache, domain.CardTypes)
	s.Require().NoError(err)
	cardTypes = append(cardTypes, ct)
	raw, err := domain.EncodeRecords(cardTypes)
	s.Require().NoError(err)
	s.Require().NoError(s.cache.Write(domain.CardTypes, raw))
}

func (s *OpsSuite) member(id string) domain.Member {
	members, err := s.service.ListMembers()
	s.Require().NoError(err)
	for _, m := range members {
		if m.ID == id {
			return m
		}
	}
	s.FailNowf("member not found", "id %s", id)
	return domain.Member{}
}

func (s *OpsSuite) operationLogs() []domain.OperationLog {
	logs, err := readCollection[domain.OperationLog](s.cache, domain.OperationLogs)
	s.Require().NoError(err)
	return logs
}

func (s *OpsSuite) TestAddMember() {
	member, err := s.service.AddMember(AddMemberParams{Name: "  Ada Wong ", Phone: "13800000001", Operator: "admin"})
	s.Require().NoError(err)
	s.Equal("Ada Wong", member.Name)
	s.Equal(domain.MemberStatusActive, member.Status)
	s.Zero(member.Balance)
	s.Equal(s.now, member.JoinDate)

	stored := s.member(member.ID)
	s.Equal(*member, stored)

	logs := s.operationLogs()
	s.Require().Len(logs, 1)
	s.Equal("addMember", logs[0].Action)
	s.Equal("admin", logs[0].Operator)
}

func (s *OpsSuite) TestAddMemberRequiresName() {
	_, err := s.service.AddMember(AddMemberParams{Name: "   "})
	s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *OpsSuite) TestUpdateMember() {
	member, err := s.service.AddMember(AddMemberParams{Name: "Ada", Operator: "admin"})
	s.Require().NoError(err)

	updated, err := s.service.UpdateMember(member.ID, UpdateMemberParams{Phone: "13900000002", Operator: "admin"})
	s.Require().NoError(err)
	s.Equal("Ada", updated.Name)
	s.Equal("13900000002", updated.Phone)

	_, err = s.service.UpdateMember("missing", UpdateMemberParams{Name: "x"})
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *OpsSuite) TestDeactivateMember() {
	member, err := s.service.AddMember(AddMemberParams{Name: "Ada", Operator: "admin"})
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeactivateMember(member.ID, "admin"))
	s.Equal(domain.MemberStatusInactive, s.member(member.ID).Status)
}

func (s *OpsSuite) TestAddRecharge() {
	s.seedMember(domain.Member{ID: "m1", Name: "Ada", Balance: 50, Status: domain.MemberStatusActive})

	record, err := s.service.AddRecharge(AddRechargeParams{
		MemberID:      "m1",
		Amount:        100,
		PaymentMethod: "cash",
		Operator:      "admin",
	})
	s.Require().NoError(err)
	s.Equal(100.0, record.Amount)
	s.Equal(150.0, record.Balance)
	s.Equal("m1", record.MemberID)

	s.Equal(150.0, s.member("m1").Balance)

	recharges, err := s.service.ListRecharges()
	s.Require().NoError(err)
	s.Require().Len(recharges, 1)
	s.Equal(*record, recharges[0])
}

func (s *OpsSuite) TestAddRechargeValidation() {
	s.seedMember(domain.Member{ID: "m1", Name: "Ada"})

	_, err := s.service.AddRecharge(AddRechargeParams{MemberID: "m1", Amount: 0})
	s.Require().True(dErrors.Is(err, dErrors.CodeValidation))

	_, err = s.service.AddRecharge(AddRechargeParams{MemberID: "missing", Amount: 10})
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))

	// Nothing was appended by the rejected operations.
	recharges, err := s.service.ListRecharges()
	s.Require().NoError(err)
	s.Empty(recharges)
}

func (s *OpsSuite) TestIssueCard() {
	s.seedMember(domain.Member{ID: "m1", Name: "Ada", Status: domain.MemberStatusActive})
	s.seedCardType(domain.CardType{ID: "ct1", Name: "10-visit", Price: 300, Count: 10, ValidityDays: 90, Active: true})

	card, err := s.service.IssueCard("m1", "ct1", "admin")
	s.Require().NoError(err)
	s.Equal("10-visit", card.TypeName)
	s.Equal(10, card.TotalCount)
	s.Zero(card.UsedCount)
	s.Equal(10, card.RemainingCount)
	s.Equal(s.now.Add(90*24*time.Hour), card.ExpiresAt)

	stored := s.member("m1")
	s.Require().NotNil(stored.Card)
	s.Equal(*card, *stored.Card)
}

func (s *OpsSuite) TestIssueCardErrors() {
	s.seedMember(domain.Member{ID: "m1", Name: "Ada"})
	s.seedCardType(domain.CardType{ID: "ct-retired", Name: "old", Count: 5, ValidityDays: 30, Active: false})

	_, err := s.service.IssueCard("m1", "missing", "admin")
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))

	_, err = s.service.IssueCard("m1", "ct-retired", "admin")
	s.Require().True(dErrors.Is(err, dErrors.CodeValidation))

	_, err = s.service.IssueCard("missing", "ct-retired", "admin")
	s.Require().Error(err)
}

// TestCardCountInvariant issues a card and consumes against it K times,
// checking usedCount + remainingCount stays equal to totalCount throughout.
func (s *OpsSuite) TestCardCountInvariant() {
	s.seedMember(domain.Member{ID: "m1", Name: "Ada", Status: domain.MemberStatusActive})
	s.seedCardType(domain.CardType{ID: "ct1", Name: "10-visit", Count: 10, ValidityDays: 90, Active: true})

	card, err := s.service.IssueCard("m1", "ct1", "admin")
	s.Require().NoError(err)

	const k = 3
	for i := 0; i < k; i++ {
		_, err := s.service.AddConsumption(AddConsumptionParams{
			MemberID: "m1",
			Category: "swim",
			UsedCard: true,
			Operator: "admin",
		})
		s.Require().NoError(err)

		got := s.member("m1").Card
		s.Equal(got.TotalCount, got.UsedCount+got.RemainingCount)
	}

	got := s.member("m1").Card
	s.Equal(k, got.UsedCount)
	s.Equal(card.TotalCount-k, got.RemainingCount)

	consumptions, err := s.service.ListConsumptions()
	s.Require().NoError(err)
	s.Len(consumptions, k)
}

// TestConsumeWithExhaustedCard pins the failure path: no record appended,
// no card mutated.
func (s *OpsSuite) TestConsumeWithExhaustedCard() {
	s.seedMember(domain.Member{
		ID:     "m1",
		Name:   "Ada",
		Status: domain.MemberStatusActive,
		Card: &domain.Card{
			ID:             "c1",
			TypeName:       "5-visit",
			TotalCount:     5,
			UsedCount:      5,
			RemainingCount: 0,
			ExpiresAt:      s.now.Add(24 * time.Hour),
		},
	})

	_, err := s.service.AddConsumption(AddConsumptionParams{MemberID: "m1", UsedCard: true, Operator: "admin"})
	s.Require().True(dErrors.Is(err, dErrors.CodeValidation))

	consumptions, listErr := s.service.ListConsumptions()
	s.Require().NoError(listErr)
	s.Empty(consumptions)

	card := s.member("m1").Card
	s.Equal(5, card.UsedCount)
	s.Equal(0, card.RemainingCount)
}

func (s *OpsSuite) TestConsumeWithoutCard() {
	s.seedMember(domain.Member{ID: "m1", Name: "Ada"})

	_, err := s.service.AddConsumption(AddConsumptionParams{MemberID: "m1", UsedCard: true})
	s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *OpsSuite) TestConsumeWithExpiredCard() {
	s.seedMember(domain.Member{
		ID:   "m1",
		Name: "Ada",
		Card: &domain.Card{
			ID:             "c1",
			TotalCount:     5,
			UsedCount:      0,
			RemainingCount: 5,
			ExpiresAt:      s.now.Add(-time.Hour),
		},
	})

	_, err := s.service.AddConsumption(AddConsumptionParams{MemberID: "m1", UsedCard: true})
	s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *OpsSuite) TestConsumeAgainstBalance() {
	s.seedMember(domain.Member{ID: "m1", Name: "Ada", Balance: 80})

	record, err := s.service.AddConsumption(AddConsumptionParams{
		MemberID:      "m1",
		Amount:        30,
		Category:      "gym",
		PaymentMethod: PaymentMethodBalance,
		Operator:      "admin",
	})
	s.Require().NoError(err)
	s.Equal(domain.ConsumptionStatusCompleted, record.Status)
	s.Equal(50.0, s.member("m1").Balance)

	_, err = s.service.AddConsumption(AddConsumptionParams{
		MemberID:      "m1",
		Amount:        500,
		PaymentMethod: PaymentMethodBalance,
	})
	s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *OpsSuite) TestSearchMembers() {
	s.seedMember(domain.Member{ID: "m1", Name: "Ada Wong", Phone: "13800000001"})
	s.seedMember(domain.Member{ID: "m2", Name: "Bob Chen", Phone: "13912345678"})

	byName, err := s.service.SearchMembers("ada")
	s.Require().NoError(err)
	s.Require().Len(byName, 1)
	s.Equal("m1", byName[0].ID)

	byPhone, err := s.service.SearchMembers("12345")
	s.Require().NoError(err)
	s.Require().Len(byPhone, 1)
	s.Equal("m2", byPhone[0].ID)

	all, err := s.service.SearchMembers("  ")
	s.Require().NoError(err)
	s.Len(all, 2)

	none, err := s.service.SearchMembers("zzz")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *OpsSuite) TestCardTypeCatalog() {
	ct, err := s.service.AddCardType(AddCardTypeParams{Name: "10-visit", Price: 300, Count: 10, ValidityDays: 90, Operator: "admin"})
	s.Require().NoError(err)
	s.True(ct.Active)

	listed, err := s.service.ListCardTypes()
	s.Require().NoError(err)
	s.Require().Len(listed, 1)

	s.Require().NoError(s.service.DeactivateCardType(ct.ID, "admin"))
	listed, err = s.service.ListCardTypes()
	s.Require().NoError(err)
	s.False(listed[0].Active)

	_, err = s.service.AddCardType(AddCardTypeParams{Name: "", Count: 1, ValidityDays: 1})
	s.Require().True(dErrors.Is(err, dErrors.CodeValidation))
	err = s.service.DeactivateCardType("missing", "admin")
	s.Require().True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *OpsSuite) TestOperationsRequireConnectedCache() {
	disconnected := cache.New(store.NewMemory(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := NewService(disconnected, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.ListMembers()
	s.Require().True(dErrors.Is(err, dErrors.CodeNotConnected))
	_, err = svc.AddMember(AddMemberParams{Name: "Ada"})
	s.Require().True(dErrors.Is(err, dErrors.CodeNotConnected))
}
