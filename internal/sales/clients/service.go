package clients

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fournitex/fournitex/internal/shared"
)

// AuditPort abstracts the audit trail written when client records change.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo  Repository
	audit AuditPort
}

func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) Create(ctx context.Context, req CreateClientRequest) (*Client, error) {
	client := Client{
		Name:            strings.TrimSpace(req.Name),
		Company:         trimOptional(req.Company),
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:           trimOptional(req.Phone),
		Fax:             trimOptional(req.Fax),
		BillingAddress:  toAddress(req.BillingAddress),
		DeliveryAddress: toAddress(req.DeliveryAddress),
		IsActive:        true,
	}
	// Default to shipping at the billing address unless the caller says
	// otherwise; the copy is materialized so later billing edits do not
	// retroactively move deliveries.
	client.SameDeliveryAddress = req.SameDeliveryAddress == nil || *req.SameDeliveryAddress
	if client.SameDeliveryAddress {
		client.DeliveryAddress = client.BillingAddress
	}

	if client.Name == "" {
		return nil, fmt.Errorf("field name: %w", shared.ErrValidation)
	}
	if client.Email == "" {
		return nil, fmt.Errorf("field email: %w", shared.ErrValidation)
	}

	number, err := s.repo.GenerateNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate client number: %w", err)
	}
	client.Number = number

	id, err := s.repo.Create(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "client:create",
			Entity:   "client",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     map[string]any{"number": number},
		})
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateClientRequest) (*Client, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("field name: %w", shared.ErrValidation)
		}
		updates["name"] = name
	}
	if req.Company != nil {
		updates["company"] = strings.TrimSpace(*req.Company)
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email == "" {
			return nil, fmt.Errorf("field email: %w", shared.ErrValidation)
		}
		updates["email"] = email
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Fax != nil {
		updates["fax"] = strings.TrimSpace(*req.Fax)
	}
	if req.BillingAddress != nil {
		applyAddress(updates, "billing", *req.BillingAddress)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	sameDelivery := existing.SameDeliveryAddress
	if req.SameDeliveryAddress != nil {
		sameDelivery = *req.SameDeliveryAddress
		updates["same_delivery_address"] = sameDelivery
	}
	switch {
	case sameDelivery && req.BillingAddress != nil:
		applyAddress(updates, "delivery", *req.BillingAddress)
	case sameDelivery && req.SameDeliveryAddress != nil:
		applyAddress(updates, "delivery", AddressInput(existing.BillingAddress))
	case !sameDelivery && req.DeliveryAddress != nil:
		applyAddress(updates, "delivery", *req.DeliveryAddress)
	}

	if len(updates) == 0 {
		return existing, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return s.repo.Get(ctx, id)
}

// Deactivate soft-deletes a client. Existing orders keep their snapshotted
// client data, so nothing downstream breaks.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.Update(ctx, id, map[string]interface{}{"is_active": false}); err != nil {
		return fmt.Errorf("deactivate client: %w", err)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   "client:deactivate",
			Entity:   "client",
			EntityID: strconv.FormatInt(id, 10),
		})
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req ListClientsRequest) ([]Client, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func toAddress(in AddressInput) Address {
	return Address{
		Street:     strings.TrimSpace(in.Street),
		City:       strings.TrimSpace(in.City),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.TrimSpace(in.Country),
	}
}

func applyAddress(updates map[string]interface{}, prefix string, in AddressInput) {
	updates[prefix+"_street"] = strings.TrimSpace(in.Street)
	updates[prefix+"_city"] = strings.TrimSpace(in.City)
	updates[prefix+"_postal_code"] = strings.TrimSpace(in.PostalCode)
	updates[prefix+"_country"] = strings.TrimSpace(in.Country)
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
