package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	campaigndomain "github.com/loyalops/perkdesk/internal/campaign/domain"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  campaigndomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  campaigndomain.Repository
	genID *snowflake.Node
}

func New(p Params) campaigndomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("campaign.service"),
		repo:  p.Repo,
		genID: p.GenID,
	}
}

// Create stores a draft campaign. It only boosts earnings after Launch.
func (s *Service) Create(ctx context.Context, req campaigndomain.CreateRequest) (*campaigndomain.Response, error) {
	tenantID, err := s.parseTenantID(req.TenantID)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, campaigndomain.ErrInvalidName
	}
	if req.Multiplier <= 0 {
		return nil, campaigndomain.ErrInvalidMultiplier
	}
	if req.StartsAt.IsZero() || req.EndsAt.IsZero() || !req.EndsAt.After(req.StartsAt) {
		return nil, campaigndomain.ErrInvalidWindow
	}

	now := time.Now().UTC()
	campaign := &campaigndomain.Campaign{
		ID:         s.genID.Generate(),
		TenantID:   tenantID,
		Name:       name,
		Multiplier: req.Multiplier,
		StartsAt:   req.StartsAt.UTC(),
		EndsAt:     req.EndsAt.UTC(),
		Status:     campaigndomain.StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.repo.Insert(ctx, s.db, campaign); err != nil {
		return nil, err
	}
	return s.toResponse(campaign), nil
}

func (s *Service) List(ctx context.Context, tenantIDRaw string) ([]campaigndomain.Response, error) {
	tenantID, err := s.parseTenantID(tenantIDRaw)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}

	resp := make([]campaigndomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *s.toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, tenantIDRaw string, id string) (*campaigndomain.Response, error) {
	tenantID, campaignID, err := s.parseIDs(tenantIDRaw, id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, campaigndomain.ErrNotFound
	}
	return s.toResponse(item), nil
}

func (s *Service) Update(ctx context.Context, req campaigndomain.UpdateRequest) (*campaigndomain.Response, error) {
	tenantID, campaignID, err := s.parseIDs(req.TenantID, req.ID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, campaigndomain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, campaigndomain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Multiplier != nil {
		if *req.Multiplier <= 0 {
			return nil, campaigndomain.ErrInvalidMultiplier
		}
		item.Multiplier = *req.Multiplier
	}
	if req.StartsAt != nil {
		item.StartsAt = req.StartsAt.UTC()
	}
	if req.EndsAt != nil {
		item.EndsAt = req.EndsAt.UTC()
	}
	if !item.EndsAt.After(item.StartsAt) {
		return nil, campaigndomain.ErrInvalidWindow
	}

	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}
	return s.toResponse(item), nil
}

func (s *Service) Launch(ctx context.Context, tenantIDRaw string, id string) (*campaigndomain.Response, error) {
	tenantID, campaignID, err := s.parseIDs(tenantIDRaw, id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, campaigndomain.ErrNotFound
	}
	if item.Status == campaigndomain.StatusActive {
		return nil, campaigndomain.ErrAlreadyActive
	}
	if item.Status == campaigndomain.StatusEnded {
		return nil, campaigndomain.ErrAlreadyEnded
	}
	if !item.EndsAt.After(time.Now().UTC()) {
		return nil, campaigndomain.ErrAlreadyEnded
	}

	item.Status = campaigndomain.StatusActive
	item.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	s.log.Info("campaign launched",
		zap.String("tenant_id", tenantID.String()),
		zap.String("campaign_id", campaignID.String()),
		zap.Float64("multiplier", item.Multiplier),
	)
	return s.toResponse(item), nil
}

// End deactivates the campaign and clamps its window to now, so in-flight
// earn calculations stop picking it up.
func (s *Service) End(ctx context.Context, tenantIDRaw string, id string) (*campaigndomain.Response, error) {
	tenantID, campaignID, err := s.parseIDs(tenantIDRaw, id)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, campaigndomain.ErrNotFound
	}
	if item.Status != campaigndomain.StatusActive {
		return nil, campaigndomain.ErrAlreadyEnded
	}

	now := time.Now().UTC()
	item.Status = campaigndomain.StatusEnded
	if item.EndsAt.After(now) {
		item.EndsAt = now
	}
	item.UpdatedAt = now
	if err := s.repo.Update(ctx, s.db, item); err != nil {
		return nil, err
	}

	s.log.Info("campaign ended",
		zap.String("tenant_id", tenantID.String()),
		zap.String("campaign_id", campaignID.String()),
	)
	return s.toResponse(item), nil
}

func (s *Service) BestMultiplierAt(ctx context.Context, tenantID snowflake.ID, ts time.Time) (float64, *campaigndomain.Campaign, error) {
	items, err := s.repo.ListActiveAt(ctx, s.db, tenantID, ts)
	if err != nil {
		return 0, nil, err
	}

	best := 1.0
	var bestCampaign *campaigndomain.Campaign
	for i := range items {
		if items[i].Multiplier > best {
			best = items[i].Multiplier
			bestCampaign = &items[i]
		}
	}
	return best, bestCampaign, nil
}

func (s *Service) parseTenantID(value string) (snowflake.ID, error) {
	tenantID, err := campaigndomain.ParseID(strings.TrimSpace(value))
	if err != nil || tenantID == 0 {
		return 0, campaigndomain.ErrInvalidTenant
	}
	return tenantID, nil
}

func (s *Service) parseIDs(tenantIDRaw string, idRaw string) (snowflake.ID, snowflake.ID, error) {
	tenantID, err := s.parseTenantID(tenantIDRaw)
	if err != nil {
		return 0, 0, err
	}
	campaignID, err := campaigndomain.ParseID(strings.TrimSpace(idRaw))
	if err != nil {
		return 0, 0, campaigndomain.ErrInvalidID
	}
	return tenantID, campaignID, nil
}

func (s *Service) toResponse(c *campaigndomain.Campaign) *campaigndomain.Response {
	return &campaigndomain.Response{
		ID:         c.ID.String(),
		TenantID:   c.TenantID.String(),
		Name:       c.Name,
		Multiplier: c.Multiplier,
		StartsAt:   c.StartsAt,
		EndsAt:     c.EndsAt,
		Status:     c.Status,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}
