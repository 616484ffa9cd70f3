package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	rewarddomain "github.com/loyalops/perkdesk/internal/reward/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  rewarddomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  rewarddomain.Repository
	genID *snowflake.Node
}

func New(p Params) rewarddomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("reward.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

func (s *Service) Create(ctx context.Context, req rewarddomain.CreateRequest) (*rewarddomain.Response, error) {
	tenantID, err := s.parseTenantID(req.TenantID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, rewarddomain.ErrInvalidName
	}
	if req.CostPoints <= 0 {
		return nil, rewarddomain.ErrInvalidCostPoints
	}
	if req.Inventory != nil && *req.Inventory < 0 {
		return nil, rewarddomain.ErrInvalidInventory
	}

	now := time.Now().UTC()
	reward := &rewarddomain.Reward{
		ID:          s.genID.Generate(),
		TenantID:    tenantID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CostPoints:  req.CostPoints,
		Inventory:   req.Inventory,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Insert(ctx, s.db, reward); err != nil {
		return nil, err
	}
	return s.toResponse(reward), nil
}

func (s *Service) List(ctx context.Context, tenantIDRaw string, activeOnly bool) ([]rewarddomain.Response, error) {
	tenantID, err := s.parseTenantID(tenantIDRaw)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, tenantID, activeOnly)
	if err != nil {
		return nil, err
	}

	resp := make([]rewarddomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *s.toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, tenantIDRaw string, id string) (*rewarddomain.Response, error) {
	tenantID, err := s.parseTenantID(tenantIDRaw)
	if err != nil {
		return nil, err
	}

	rewardID, err := rewarddomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, rewarddomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, rewardID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, rewarddomain.ErrNotFound
	}
	return s.toResponse(item), nil
}

func (s *Service) Update(ctx context.Context, req rewarddomain.UpdateRequest) (*rewarddomain.Response, error) {
	tenantID, err := s.parseTenantID(req.TenantID)
	if err != nil {
		return nil, err
	}

	rewardID, err := rewarddomain.ParseID(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, rewarddomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, rewardID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, rewarddomain.ErrNotFound
	}
	if !item.Active {
		return nil, rewarddomain.ErrArchived
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, rewarddomain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.CostPoints != nil {
		if *req.CostPoints <= 0 {
			return nil, rewarddomain.ErrInvalidCostPoints
		}
		item.CostPoints = *req.CostPoints
	}
	if req.Inventory != nil {
		if *req.Inventory < 0 {
			return nil, rewarddomain.ErrInvalidInventory
		}
		item.Inventory = req.Inventory
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}
	return s.toResponse(item), nil
}

// Archive deactivates the reward. Past redemptions keep referencing it, so
// rewards are never deleted.
func (s *Service) Archive(ctx context.Context, tenantIDRaw string, id string) (*rewarddomain.Response, error) {
	tenantID, err := s.parseTenantID(tenantIDRaw)
	if err != nil {
		return nil, err
	}

	rewardID, err := rewarddomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, rewarddomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, rewardID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, rewarddomain.ErrNotFound
	}
	if !item.Active {
		return s.toResponse(item), nil
	}

	item.Active = false
	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	s.log.Info("reward archived",
		zap.String("tenant_id", tenantID.String()),
		zap.String("reward_id", rewardID.String()),
	)
	return s.toResponse(item), nil
}

func (s *Service) parseTenantID(value string) (snowflake.ID, error) {
	tenantID, err := rewarddomain.ParseID(strings.TrimSpace(value))
	if err != nil || tenantID == 0 {
		return 0, rewarddomain.ErrInvalidTenant
	}
	return tenantID, nil
}

func (s *Service) toResponse(reward *rewarddomain.Reward) *rewarddomain.Response {
	return &rewarddomain.Response{
		ID:          reward.ID.String(),
		TenantID:    reward.TenantID.String(),
		Name:        reward.Name,
		Description: reward.Description,
		CostPoints:  reward.CostPoints,
		Inventory:   reward.Inventory,
		Active:      reward.Active,
		CreatedAt:   reward.CreatedAt,
		UpdatedAt:   reward.UpdatedAt,
	}
}
