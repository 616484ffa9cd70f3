package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	customerdomain "github.com/loyalops/perkdesk/internal/customer/domain"
	"github.com/loyalops/perkdesk/pkg/db"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  customerdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  customerdomain.Repository
	genID *snowflake.Node
}

func New(p Params) customerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req customerdomain.CreateRequest) (*customerdomain.Response, error) {
	tenantID, err := s.parseTenantID(req.TenantID)
	if err != nil {
		return nil, err
	}

	externalRef := strings.TrimSpace(req.ExternalRef)
	if externalRef == "" {
		return nil, customerdomain.ErrInvalidExternalRef
	}

	existing, err := s.repo.FindByExternalRef(ctx, s.db, tenantID, externalRef)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, customerdomain.ErrExternalRefTaken
	}

	now := time.Now().UTC()
	customer := &customerdomain.Customer{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		ExternalRef: externalRef,
		Email:       strings.TrimSpace(req.Email),
		Name:        strings.TrimSpace(req.Name),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, customer); err != nil {
		// The pre-check can race a concurrent create on the same ref.
		if db.IsDuplicateKeyErr(err) {
			return nil, customerdomain.ErrExternalRefTaken
		}
		return nil, err
	}
	return s.toResponse(customer), nil
}

func (s *Service) List(ctx context.Context, req customerdomain.ListRequest) (*customerdomain.ListResponse, error) {
	tenantID, err := s.parseTenantID(req.TenantID)
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}

	items, err := s.repo.List(ctx, s.db, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	resp := make([]customerdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *s.toResponse(&items[i]))
	}
	return &customerdomain.ListResponse{Customers: resp, Total: total}, nil
}

func (s *Service) GetByID(ctx context.Context, tenantIDRaw string, id string) (*customerdomain.Response, error) {
	tenantID, err := s.parseTenantID(tenantIDRaw)
	if err != nil {
		return nil, err
	}

	customerID, err := customerdomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, customerdomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, customerdomain.ErrNotFound
	}
	return s.toResponse(item), nil
}

func (s *Service) GetByExternalRef(ctx context.Context, tenantIDRaw string, externalRef string) (*customerdomain.Response, error) {
	tenantID, err := s.parseTenantID(tenantIDRaw)
	if err != nil {
		return nil, err
	}

	externalRef = strings.TrimSpace(externalRef)
	if externalRef == "" {
		return nil, customerdomain.ErrInvalidExternalRef
	}

	item, err := s.repo.FindByExternalRef(ctx, s.db, tenantID, externalRef)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, customerdomain.ErrNotFound
	}
	return s.toResponse(item), nil
}

func (s *Service) Update(ctx context.Context, req customerdomain.UpdateRequest) (*customerdomain.Response, error) {
	tenantID, err := s.parseTenantID(req.TenantID)
	if err != nil {
		return nil, err
	}

	customerID, err := customerdomain.ParseID(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, customerdomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, customerdomain.ErrNotFound
	}

	if req.Email != nil {
		item.Email = strings.TrimSpace(*req.Email)
	}
	if req.Name != nil {
		item.Name = strings.TrimSpace(*req.Name)
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}
	return s.toResponse(item), nil
}

func (s *Service) parseTenantID(value string) (snowflake.ID, error) {
	tenantID, err := customerdomain.ParseID(strings.TrimSpace(value))
	if err != nil || tenantID == 0 {
		return 0, customerdomain.ErrInvalidTenant
	}
	return tenantID, nil
}

func (s *Service) toResponse(c *customerdomain.Customer) *customerdomain.Response {
	resp := &customerdomain.Response{
		ID:             c.ID.String(),
		TenantID:       c.TenantID.String(),
		ExternalRef:    c.ExternalRef,
		Email:          c.Email,
		Name:           c.Name,
		PointsBalance:  c.PointsBalance,
		LifetimePoints: c.LifetimePoints,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.TierID != nil {
		tierID := c.TierID.String()
		resp.TierID = &tierID
	}
	return resp
}
