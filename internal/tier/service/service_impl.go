package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	tierdomain "github.com/loyalops/perkdesk/internal/tier/domain"
	"github.com/loyalops/perkdesk/pkg/db"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  tierdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  tierdomain.Repository
	genID *snowflake.Node
}

func New(p Params) tierdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tier.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req tierdomain.CreateRequest) (*tierdomain.Response, error) {
	tenantID, err := s.parseTenantID(req.TenantID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, tierdomain.ErrInvalidName
	}
	if req.MinPoints < 0 {
		return nil, tierdomain.ErrInvalidMinPoints
	}

	multiplier := 1.0
	if req.Multiplier != nil {
		if *req.Multiplier <= 0 {
			return nil, tierdomain.ErrInvalidMultiplier
		}
		multiplier = *req.Multiplier
	}

	existing, err := s.repo.FindByName(ctx, s.db, tenantID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, tierdomain.ErrNameTaken
	}

	now := time.Now().UTC()
	tier := &tierdomain.Tier{
		ID:         s.genID.Generate(),
		TenantID:   tenantID,
		Name:       name,
		MinPoints:  req.MinPoints,
		Multiplier: multiplier,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, tier); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, tierdomain.ErrNameTaken
		}
		return nil, err
	}

	return s.toResponse(tier), nil
}

func (s *Service) List(ctx context.Context, tenantIDRaw string) ([]tierdomain.Response, error) {
	tenantID, err := s.parseTenantID(tenantIDRaw)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	resp := make([]tierdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *s.toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, tenantIDRaw string, id string) (*tierdomain.Response, error) {
	tenantID, err := s.parseTenantID(tenantIDRaw)
	if err != nil {
		return nil, err
	}

	tierID, err := tierdomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, tierdomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, tierID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, tierdomain.ErrNotFound
	}
	return s.toResponse(item), nil
}

func (s *Service) Update(ctx context.Context, req tierdomain.UpdateRequest) (*tierdomain.Response, error) {
	tenantID, err := s.parseTenantID(req.TenantID)
	if err != nil {
		return nil, err
	}

	tierID, err := tierdomain.ParseID(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, tierdomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, tierID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, tierdomain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, tierdomain.ErrInvalidName
		}
		if name != item.Name {
			existing, err := s.repo.FindByName(ctx, s.db, tenantID, name)
			if err != nil {
				return nil, err
			}
			if existing != nil {
				return nil, tierdomain.ErrNameTaken
			}
		}
		item.Name = name
	}

	if req.MinPoints != nil {
		if *req.MinPoints < 0 {
			return nil, tierdomain.ErrInvalidMinPoints
		}
		item.MinPoints = *req.MinPoints
	}

	if req.Multiplier != nil {
		if *req.Multiplier <= 0 {
			return nil, tierdomain.ErrInvalidMultiplier
		}
		item.Multiplier = *req.Multiplier
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}
	return s.toResponse(item), nil
}

func (s *Service) Delete(ctx context.Context, tenantIDRaw string, id string) error {
	tenantID, err := s.parseTenantID(tenantIDRaw)
	if err != nil {
		return err
	}

	tierID, err := tierdomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return tierdomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, tierID)
	if err != nil {
		return err
	}
	if item == nil {
		return tierdomain.ErrNotFound
	}

	return s.repo.Delete(ctx, s.db, tenantID, tierID)
}

func (s *Service) TierFor(ctx context.Context, tenantID snowflake.ID, lifetimePoints int64) (*tierdomain.Tier, error) {
	items, err := s.repo.List(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	var best *tierdomain.Tier
	for i := range items {
		if items[i].MinPoints <= lifetimePoints {
			best = &items[i]
		}
	}
	return best, nil
}

func (s *Service) parseTenantID(value string) (snowflake.ID, error) {
	tenantID, err := tierdomain.ParseID(strings.TrimSpace(value))
	if err != nil || tenantID == 0 {
		return 0, tierdomain.ErrInvalidTenant
	}
	return tenantID, nil
}

func (s *Service) toResponse(t *tierdomain.Tier) *tierdomain.Response {
	return &tierdomain.Response{
		ID:         t.ID.String(),
		TenantID:   t.TenantID.String(),
		Name:       t.Name,
		MinPoints:  t.MinPoints,
		Multiplier: t.Multiplier,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
}
