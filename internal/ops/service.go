// Package ops implements the domain workflows of the admin tool: members,
// cards, recharges, and consumptions. Every operation reads the collections
// it needs from the cache, computes new records, and writes the affected
// collections back in one in-memory batch. Durability is the cache's
// problem; these functions never touch the network.
package ops

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"memberdesk/internal/cache"
	"memberdesk/internal/domain"
	dErrors "memberdesk/pkg/domain-errors"
)

// Service runs business operations over an injected cache instance. No
// package-level state: the composition root owns the cache and passes it
// here by reference.
type Service struct {
	cache  *cache.Cache
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

// WithClock fixes the time source; used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator fixes record ID generation; used by tests.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(c *cache.Cache, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		cache:  c,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// readCollection decodes one cached collection into typed records.
func readCollection[T any](c *cache.Cache, name domain.CollectionName) ([]T, error) {
	raw, err := c.Read(name)
	if err != nil {
		return nil, err
	}
	records, err := domain.DecodeRecords[T](raw)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, fmt.Sprintf("corrupt %s collection", name), err)
	}
	return records, nil
}

// encodeCollection is the write-side counterpart of readCollection.
func encodeCollection[T any](name domain.CollectionName, records []T) ([]json.RawMessage, error) {
	raw, err := domain.EncodeRecords(records)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, fmt.Sprintf("encode %s collection", name), err)
	}
	return raw, nil
}

// appendLog stages an operation log entry into an in-progress batch.
func (s *Service) appendLog(batch map[domain.CollectionName][]json.RawMessage, operator, action, detail string) error {
	logs, err := readCollection[domain.OperationLog](s.cache, domain.OperationLogs)
	if err != nil {
		return err
	}
	logs = append(logs, domain.OperationLog{
		ID:        s.newID(),
		Operator:  operator,
		Action:    action,
		Detail:    detail,
		CreatedAt: s.now(),
	})
	raw, err := encodeCollection(domain.OperationLogs, logs)
	if err != nil {
		return err
	}
	batch[domain.OperationLogs] = raw
	return nil
}

// findMember locates a member by ID in a decoded slice.
func findMember(members []domain.Member, id string) (int, error) {
	for i := range members {
		if members[i].ID == id {
			return i, nil
		}
	}
	return -1, dErrors.New(dErrors.CodeNotFound, "member not found")
}
