// Package orders implements order intake. An order never exists without its
// document: the attachment is written first and rolled back again if the row
// insert fails, so a rejected or failed request leaves neither a partial
// order nor an orphaned payload.
package orders

import (
	"context"
	"fmt"

	"github.com/avetra/backoffice/internal/attachment"
	"github.com/avetra/backoffice/internal/audit"
	"github.com/avetra/backoffice/pkg/db/models"
	"github.com/avetra/backoffice/pkg/db/store"
	"github.com/avetra/backoffice/pkg/log"
)

// Service handles order creation and document retrieval.
type Service struct {
	db       store.Store
	resolver *attachment.Resolver
	specs    *attachment.Registry
	rec      *audit.Recorder
	log      log.LoggerService
}

// NewService wires the order intake path.
func NewService(db store.Store, resolver *attachment.Resolver, specs *attachment.Registry, rec *audit.Recorder, logger log.LoggerService) *Service {
	return &Service{
		db:       db,
		resolver: resolver,
		specs:    specs,
		rec:      rec,
		log:      logger,
	}
}

// Input is an order creation request. Document payload and name are
// mandatory; Status defaults to "new".
type Input struct {
	CustomerID   uint
	Status       string
	DocumentName string
	Document     []byte
}

// Create stores the document via the attachment resolver and inserts the
// order row. Attachment errors (missing required payload, invalid path)
// fail the whole operation before anything is persisted.
func (s *Service) Create(ctx context.Context, actor audit.Actor, in Input) (*models.Order, error) {
	spec, ok := s.specs.Lookup("orders", "document_data")
	if !ok {
		return nil, fmt.Errorf("no attachment spec registered for orders.document_data")
	}

	ref, err := s.resolver.Store(ctx, spec, in.DocumentName, in.Document)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = "new"
	}

	order := &models.Order{
		CustomerID:   in.CustomerID,
		Status:       status,
		DocumentName: ref.Name,
		DocumentData: ref.Data,
	}
	if err := s.db.CreateOrder(ctx, order); err != nil {
		if cleanupErr := s.resolver.Remove(ctx, spec, ref); cleanupErr != nil {
			s.log.Warn("Failed to clean up attachment payload %s: %v", ref.Data, cleanupErr)
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if err := s.rec.Record(ctx, audit.LevelInfo, actor, "order_created", "orders", map[string]any{
		"order_id":      order.ID,
		"customer_id":   order.CustomerID,
		"status":        order.Status,
		"document_name": order.DocumentName,
	}); err != nil {
		s.log.Warn("Audit append for order %d failed: %v", order.ID, err)
	}

	return order, nil
}

// Document fetches the order's attachment, resolving it through the same
// descriptor that stored it.
func (s *Service) Document(ctx context.Context, orderID uint) (string, []byte, error) {
	order, err := s.db.GetOrder(ctx, orderID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}

	spec, ok := s.specs.Lookup("orders", "document_data")
	if !ok {
		return "", nil, fmt.Errorf("no attachment spec registered for orders.document_data")
	}

	return s.resolver.Fetch(ctx, spec, attachment.Ref{
		Name: order.DocumentName,
		Data: order.DocumentData,
	})
}
