package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	campaigndomain "github.com/loyalops/perkdesk/internal/campaign/domain"
	"github.com/loyalops/perkdesk/internal/config"
	customerdomain "github.com/loyalops/perkdesk/internal/customer/domain"
	"github.com/loyalops/perkdesk/internal/observability/metrics"
	"github.com/loyalops/perkdesk/internal/ratelimit"
	rewarddomain "github.com/loyalops/perkdesk/internal/reward/domain"
	tierdomain "github.com/loyalops/perkdesk/internal/tier/domain"
	txndomain "github.com/loyalops/perkdesk/internal/transaction/domain"
	"github.com/loyalops/perkdesk/pkg/db/pagination"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         txndomain.Repository
	CustomerRepo customerdomain.Repository
	RewardRepo   rewarddomain.Repository
	Campaigns    campaigndomain.Service
	Tiers        tierdomain.Service
	LoyaltyCfg   *config.LoyaltyConfigHolder
	Limiter      *ratelimit.TxnIngestLimiter `optional:"true"`
	Metrics      *metrics.Metrics            `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	repo         txndomain.Repository
	customerRepo customerdomain.Repository
	rewardRepo   rewarddomain.Repository
	campaigns    campaigndomain.Service
	tiers        tierdomain.Service
	loyaltyCfg   *config.LoyaltyConfigHolder
	limiter      *ratelimit.TxnIngestLimiter
	metrics      *metrics.Metrics
	genID        *snowflake.Node
}

func New(p Params) txndomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("transaction.service"),
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		rewardRepo:   p.RewardRepo,
		campaigns:    p.Campaigns,
		tiers:        p.Tiers,
		loyaltyCfg:   p.LoyaltyCfg,
		limiter:      p.Limiter,
		metrics:      p.Metrics,
		genID:        p.GenID,
	}
}

func (s *Service) Earn(ctx context.Context, req txndomain.EarnRequest) (*txndomain.Response, error) {
	tenantID, customerID, err := s.parseTenantCustomer(req.TenantID, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if req.Amount <= 0 {
		return nil, txndomain.ErrInvalidAmount
	}

	if existing, err := s.findByIdempotencyKey(ctx, tenantID, req.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return s.toResponse(existing), nil
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, txndomain.ErrCustomerNotFound
	}

	now := time.Now().UTC()
	loyalty := s.loyaltyCfg.Get()

	campaignMultiplier, campaign, err := s.campaigns.BestMultiplierAt(ctx, tenantID, now)
	if err != nil {
		return nil, err
	}

	tierMultiplier := 1.0
	tier, err := s.tiers.TierFor(ctx, tenantID, customer.LifetimePoints)
	if err != nil {
		return nil, err
	}
	if tier != nil && tier.Multiplier > 0 {
		tierMultiplier = tier.Multiplier
	}

	points := roundPoints(req.Amount*loyalty.EarnRate*campaignMultiplier*tierMultiplier, loyalty.RoundingMode)
	if points < 0 {
		return nil, txndomain.ErrInvalidAmount
	}

	txn := &txndomain.Transaction{
		ID:             s.genID.Generate(),
		TenantID:       tenantID,
		CustomerID:     customerID,
		TxnType:        txndomain.TxnTypeEarn,
		Amount:         req.Amount,
		Points:         points,
		IdempotencyKey: normalizeKey(req.IdempotencyKey),
		Metadata:       toMetadata(req.Metadata),
		CreatedAt:      now,
	}
	if campaign != nil {
		campaignID := campaign.ID
		txn.CampaignID = &campaignID
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, txn); err != nil {
			return err
		}
		ok, err := s.customerRepo.ApplyPoints(ctx, tx, tenantID, customerID, points)
		if err != nil {
			return err
		}
		if !ok {
			return txndomain.ErrInsufficientPoints
		}
		return s.recomputeTier(ctx, tx, tenantID, customerID, customer.LifetimePoints+points)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordTransactionIngest(ctx, tenantID.String(), txndomain.TxnTypeEarn)
		s.metrics.RecordPointsEarned(ctx, tenantID.String(), points)
	}
	s.log.Info("points earned",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Int64("points", points),
		zap.Float64("campaign_multiplier", campaignMultiplier),
	)
	return s.toResponse(txn), nil
}

func (s *Service) Redeem(ctx context.Context, req txndomain.RedeemRequest) (*txndomain.Response, error) {
	tenantID, customerID, err := s.parseTenantCustomer(req.TenantID, req.CustomerID)
	if err != nil {
		return nil, err
	}

	rewardID, err := txndomain.ParseID(strings.TrimSpace(req.RewardID))
	if err != nil || rewardID == 0 {
		return nil, txndomain.ErrInvalidReward
	}

	if existing, err := s.findByIdempotencyKey(ctx, tenantID, req.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return s.toResponse(existing), nil
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, txndomain.ErrCustomerNotFound
	}

	reward, err := s.rewardRepo.FindByID(ctx, s.db, tenantID, rewardID)
	if err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, txndomain.ErrRewardNotFound
	}
	if !reward.Active {
		return nil, txndomain.ErrRewardArchived
	}

	lockToken, acquired, err := s.limiter.TryRedeemLock(ctx, tenantID.String(), customerID.String())
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, txndomain.ErrRedeemInProgress
	}
	defer func() {
		if err := s.limiter.ReleaseRedeemLock(ctx, tenantID.String(), customerID.String(), lockToken); err != nil {
			s.log.Warn("redeem lock release failed",
				zap.String("tenant_id", tenantID.String()),
				zap.String("customer_id", customerID.String()),
				zap.Error(err),
			)
		}
	}()

	now := time.Now().UTC()
	txn := &txndomain.Transaction{
		ID:             s.genID.Generate(),
		TenantID:       tenantID,
		CustomerID:     customerID,
		TxnType:        txndomain.TxnTypeRedeem,
		Points:         -reward.CostPoints,
		RewardID:       &rewardID,
		IdempotencyKey: normalizeKey(req.IdempotencyKey),
		Metadata:       toMetadata(req.Metadata),
		CreatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inStock, err := s.rewardRepo.DecrementInventory(ctx, tx, tenantID, rewardID)
		if err != nil {
			return err
		}
		if !inStock {
			return txndomain.ErrOutOfStock
		}
		ok, err := s.customerRepo.ApplyPoints(ctx, tx, tenantID, customerID, -reward.CostPoints)
		if err != nil {
			return err
		}
		if !ok {
			return txndomain.ErrInsufficientPoints
		}
		return s.repo.Insert(ctx, tx, txn)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordTransactionIngest(ctx, tenantID.String(), txndomain.TxnTypeRedeem)
		s.metrics.RecordPointsRedeemed(ctx, tenantID.String(), reward.CostPoints)
	}
	s.log.Info("reward redeemed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("reward_id", rewardID.String()),
		zap.Int64("cost_points", reward.CostPoints),
	)
	return s.toResponse(txn), nil
}

func (s *Service) Adjust(ctx context.Context, req txndomain.AdjustRequest) (*txndomain.Response, error) {
	tenantID, customerID, err := s.parseTenantCustomer(req.TenantID, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if req.Points == 0 {
		return nil, txndomain.ErrInvalidPoints
	}

	if existing, err := s.findByIdempotencyKey(ctx, tenantID, req.IdempotencyKey); err != nil {
		return nil, err
	} else if existing != nil {
		return s.toResponse(existing), nil
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, tenantID, customerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, txndomain.ErrCustomerNotFound
	}

	metadata := toMetadata(req.Metadata)
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		metadata["reason"] = reason
	}

	lifetimeDelta := req.Points
	if lifetimeDelta < 0 {
		lifetimeDelta = 0
	}

	txn := &txndomain.Transaction{
		ID:             s.genID.Generate(),
		TenantID:       tenantID,
		CustomerID:     customerID,
		TxnType:        txndomain.TxnTypeAdjust,
		Points:         req.Points,
		IdempotencyKey: normalizeKey(req.IdempotencyKey),
		Metadata:       metadata,
		CreatedAt:      time.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, txn); err != nil {
			return err
		}
		ok, err := s.customerRepo.ApplyPoints(ctx, tx, tenantID, customerID, req.Points)
		if err != nil {
			return err
		}
		if !ok {
			return txndomain.ErrInsufficientPoints
		}
		return s.recomputeTier(ctx, tx, tenantID, customerID, customer.LifetimePoints+lifetimeDelta)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordTransactionIngest(ctx, tenantID.String(), txndomain.TxnTypeAdjust)
	}
	s.log.Info("points adjusted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Int64("points", req.Points),
	)
	return s.toResponse(txn), nil
}

func (s *Service) List(ctx context.Context, req txndomain.ListRequest) (*txndomain.ListResponse, error) {
	tenantID, err := s.parseTenantID(req.TenantID)
	if err != nil {
		return nil, err
	}

	var customerID snowflake.ID
	if customerIDRaw := strings.TrimSpace(req.CustomerID); customerIDRaw != "" {
		customerID, err = txndomain.ParseID(customerIDRaw)
		if err != nil || customerID == 0 {
			return nil, txndomain.ErrInvalidCustomer
		}
	}

	if strings.TrimSpace(req.PageToken) != "" || req.PageSize > 0 {
		return s.listPage(ctx, tenantID, customerID, req)
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

	var items []txndomain.Transaction
	if customerID != 0 {
		items, err = s.repo.ListByCustomer(ctx, s.db, tenantID, customerID, limit, offset)
	} else {
		items, err = s.repo.ListByTenant(ctx, s.db, tenantID, limit, offset)
	}
	if err != nil {
		return nil, err
	}

	resp := make([]txndomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *s.toResponse(&items[i]))
	}
	return &txndomain.ListResponse{Transactions: resp}, nil
}

func (s *Service) listPage(ctx context.Context, tenantID, customerID snowflake.ID, req txndomain.ListRequest) (*txndomain.ListResponse, error) {
	size := req.PageSize
	if size <= 0 {
		size = defaultListLimit
	}
	if size > maxListLimit {
		size = maxListLimit
	}

	var before *pagination.Cursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err != nil {
			return nil, txndomain.ErrInvalidID
		}
		before = cursor
	}

	// One extra row tells us whether another page exists.
	items, err := s.repo.ListPage(ctx, s.db, tenantID, customerID, before, size+1)
	if err != nil {
		return nil, err
	}

	refs := make([]*txndomain.Transaction, len(items))
	for i := range items {
		refs[i] = &items[i]
	}
	pageInfo := pagination.BuildCursorPageInfo(refs, int32(size), func(txn *txndomain.Transaction) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        txn.ID.String(),
			CreatedAt: txn.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})

	if len(items) > size {
		items = items[:size]
	}

	resp := make([]txndomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *s.toResponse(&items[i]))
	}
	return &txndomain.ListResponse{Transactions: resp, PageInfo: pageInfo}, nil
}

func (s *Service) GetByID(ctx context.Context, tenantIDRaw string, id string) (*txndomain.Response, error) {
	tenantID, err := s.parseTenantID(tenantIDRaw)
	if err != nil {
		return nil, err
	}

	txnID, err := txndomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, txndomain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, tenantID, txnID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, txndomain.ErrNotFound
	}
	return s.toResponse(item), nil
}

func (s *Service) findByIdempotencyKey(ctx context.Context, tenantID snowflake.ID, key string) (*txndomain.Transaction, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	return s.repo.FindByIdempotencyKey(ctx, s.db, tenantID, key)
}

func (s *Service) recomputeTier(ctx context.Context, tx *gorm.DB, tenantID, customerID snowflake.ID, lifetimePoints int64) error {
	tier, err := s.tiers.TierFor(ctx, tenantID, lifetimePoints)
	if err != nil {
		return err
	}
	var tierID *snowflake.ID
	if tier != nil {
		tierID = &tier.ID
	}
	return s.customerRepo.SetTier(ctx, tx, tenantID, customerID, tierID)
}

func (s *Service) parseTenantID(value string) (snowflake.ID, error) {
	tenantID, err := txndomain.ParseID(strings.TrimSpace(value))
	if err != nil || tenantID == 0 {
		return 0, txndomain.ErrInvalidTenant
	}
	return tenantID, nil
}

func (s *Service) parseTenantCustomer(tenantIDRaw, customerIDRaw string) (snowflake.ID, snowflake.ID, error) {
	tenantID, err := s.parseTenantID(tenantIDRaw)
	if err != nil {
		return 0, 0, err
	}
	customerID, err := txndomain.ParseID(strings.TrimSpace(customerIDRaw))
	if err != nil || customerID == 0 {
		return 0, 0, txndomain.ErrInvalidCustomer
	}
	return tenantID, customerID, nil
}

func roundPoints(value float64, mode string) int64 {
	switch mode {
	case "ceil":
		return int64(math.Ceil(value))
	case "round":
		return int64(math.Round(value))
	default:
		return int64(math.Floor(value))
	}
}

func normalizeKey(key string) *string {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	return &key
}

func toMetadata(m map[string]any) datatypes.JSONMap {
	if m == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(m)
}

func (s *Service) toResponse(txn *txndomain.Transaction) *txndomain.Response {
	resp := &txndomain.Response{
		ID:             txn.ID.String(),
		TenantID:       txn.TenantID.String(),
		CustomerID:     txn.CustomerID.String(),
		TxnType:        txn.TxnType,
		Amount:         txn.Amount,
		Points:         txn.Points,
		IdempotencyKey: txn.IdempotencyKey,
		Metadata:       txn.Metadata,
		CreatedAt:      txn.CreatedAt,
	}
	if txn.RewardID != nil {
		rewardID := txn.RewardID.String()
		resp.RewardID = &rewardID
	}
	if txn.CampaignID != nil {
		campaignID := txn.CampaignID.String()
		resp.CampaignID = &campaignID
	}
	return resp
}
