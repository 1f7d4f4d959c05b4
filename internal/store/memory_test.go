package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"memberdesk/internal/domain"
	dErrors "memberdesk/pkg/domain-errors"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Memory
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func rawRecords(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		out = append(out, json.RawMessage(v))
	}
	return out
}

func (s *MemoryStoreSuite) TestGetDefaultsToEmpty() {
	records, err := s.store.Get(context.Background(), domain.Members)
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *MemoryStoreSuite) TestPutIsIdempotent() {
	records := rawRecords(`{"id":"m1"}`, `{"id":"m2"}`)

	s.Require().NoError(s.store.Put(context.Background(), domain.Members, records))
	first, err := s.store.Get(context.Background(), domain.Members)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Put(context.Background(), domain.Members, records))
	second, err := s.store.Get(context.Background(), domain.Members)
	s.Require().NoError(err)

	s.Equal(first, second)
	s.Equal(records, second)
	_, ok := s.store.UpdatedAt(domain.Members)
	s.True(ok)
}

func (s *MemoryStoreSuite) TestPutFullyReplaces() {
	s.Require().NoError(s.store.Put(context.Background(), domain.Members, rawRecords(`{"id":"m1"}`, `{"id":"m2"}`)))
	s.Require().NoError(s.store.Put(context.Background(), domain.Members, rawRecords(`{"id":"m3"}`)))

	records, err := s.store.Get(context.Background(), domain.Members)
	s.Require().NoError(err)
	s.Equal(rawRecords(`{"id":"m3"}`), records)
}

func (s *MemoryStoreSuite) TestUnknownCollectionRejected() {
	_, err := s.store.Get(context.Background(), "sessions")
	s.Require().ErrorIs(err, ErrUnknownCollection)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))

	err = s.store.Put(context.Background(), "sessions", rawRecords(`{}`))
	s.Require().ErrorIs(err, ErrUnknownCollection)
}

func (s *MemoryStoreSuite) TestClearEmptiesCollection() {
	s.Require().NoError(s.store.Put(context.Background(), domain.Recharges, rawRecords(`{"id":"r1"}`)))
	s.Require().NoError(s.store.Clear(context.Background(), domain.Recharges))

	records, err := s.store.Get(context.Background(), domain.Recharges)
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *MemoryStoreSuite) TestBootstrapReturnsEveryName() {
	s.Require().NoError(s.store.Put(context.Background(), domain.Members, rawRecords(`{"id":"m1"}`)))

	all, err := s.store.Bootstrap(context.Background())
	s.Require().NoError(err)
	s.Len(all, len(domain.AllCollections()))
	for _, name := range domain.AllCollections() {
		s.Contains(all, name)
	}
	s.Equal(rawRecords(`{"id":"m1"}`), all[domain.Members])
	s.Empty(all[domain.Consumptions])
}

func (s *MemoryStoreSuite) TestBootstrapCopiesAreIsolated() {
	s.Require().NoError(s.store.Put(context.Background(), domain.Members, rawRecords(`{"id":"m1"}`)))

	all, err := s.store.Bootstrap(context.Background())
	s.Require().NoError(err)
	all[domain.Members][0][2] = 'X'

	records, err := s.store.Get(context.Background(), domain.Members)
	s.Require().NoError(err)
	s.Equal(rawRecords(`{"id":"m1"}`), records)
}

func (s *MemoryStoreSuite) TestImportBulk() {
	err := s.store.ImportBulk(context.Background(), map[domain.CollectionName][]json.RawMessage{
		domain.Members:   rawRecords(`{"id":"m1"}`),
		domain.Recharges: rawRecords(`{"id":"r1"}`, `{"id":"r2"}`),
	})
	s.Require().NoError(err)

	members, err := s.store.Get(context.Background(), domain.Members)
	s.Require().NoError(err)
	s.Len(members, 1)

	recharges, err := s.store.Get(context.Background(), domain.Recharges)
	s.Require().NoError(err)
	s.Len(recharges, 2)
}

func (s *MemoryStoreSuite) TestImportBulkRejectsUnknownName() {
	err := s.store.ImportBulk(context.Background(), map[domain.CollectionName][]json.RawMessage{
		"bogus": rawRecords(`{}`),
	})
	s.Require().ErrorIs(err, ErrUnknownCollection)
}
