package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	campaigndomain "github.com/loyalops/perkdesk/internal/campaign/domain"
	"github.com/loyalops/perkdesk/internal/config"
	customerdomain "github.com/loyalops/perkdesk/internal/customer/domain"
	customerrepo "github.com/loyalops/perkdesk/internal/customer/repository"
	rewarddomain "github.com/loyalops/perkdesk/internal/reward/domain"
	rewardrepo "github.com/loyalops/perkdesk/internal/reward/repository"
	tierdomain "github.com/loyalops/perkdesk/internal/tier/domain"
	txndomain "github.com/loyalops/perkdesk/internal/transaction/domain"
	txnrepo "github.com/loyalops/perkdesk/internal/transaction/repository"
)

// -- Mocks --

type campaignMock struct {
	mock.Mock
}

func (m *campaignMock) BestMultiplierAt(ctx context.Context, tenantID snowflake.ID, ts time.Time) (float64, *campaigndomain.Campaign, error) {
	args := m.Called(ctx, tenantID, ts)
	campaign, _ := args.Get(1).(*campaigndomain.Campaign)
	return args.Get(0).(float64), campaign, args.Error(2)
}

func (m *campaignMock) Create(context.Context, campaigndomain.CreateRequest) (*campaigndomain.Response, error) {
	return nil, nil
}
func (m *campaignMock) List(context.Context, string) ([]campaigndomain.Response, error) {
	return nil, nil
}
func (m *campaignMock) GetByID(context.Context, string, string) (*campaigndomain.Response, error) {
	return nil, nil
}
func (m *campaignMock) Update(context.Context, campaigndomain.UpdateRequest) (*campaigndomain.Response, error) {
	return nil, nil
}
func (m *campaignMock) Launch(context.Context, string, string) (*campaigndomain.Response, error) {
	return nil, nil
}
func (m *campaignMock) End(context.Context, string, string) (*campaigndomain.Response, error) {
	return nil, nil
}

type tierMock struct {
	mock.Mock
}

func (m *tierMock) TierFor(ctx context.Context, tenantID snowflake.ID, lifetimePoints int64) (*tierdomain.Tier, error) {
	args := m.Called(ctx, tenantID, lifetimePoints)
	tier, _ := args.Get(0).(*tierdomain.Tier)
	return tier, args.Error(1)
}

func (m *tierMock) Create(context.Context, tierdomain.CreateRequest) (*tierdomain.Response, error) {
	return nil, nil
}
func (m *tierMock) List(context.Context, string) ([]tierdomain.Response, error) { return nil, nil }
func (m *tierMock) GetByID(context.Context, string, string) (*tierdomain.Response, error) {
	return nil, nil
}
func (m *tierMock) Update(context.Context, tierdomain.UpdateRequest) (*tierdomain.Response, error) {
	return nil, nil
}
func (m *tierMock) Delete(context.Context, string, string) error { return nil }

// -- Fixture --

type fixture struct {
	db        *gorm.DB
	svc       txndomain.Service
	campaigns *campaignMock
	tiers     *tierMock
	genID     *snowflake.Node

	tenantID snowflake.ID
}

func newFixture(t *testing.T, loyalty config.LoyaltyConfig) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&rewarddomain.Reward{},
		&txndomain.Transaction{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	campaigns := &campaignMock{}
	tiers := &tierMock{}

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Repo:         txnrepo.Provide(),
		CustomerRepo: customerrepo.Provide(),
		RewardRepo:   rewardrepo.Provide(),
		Campaigns:    campaigns,
		Tiers:        tiers,
		LoyaltyCfg:   config.StaticLoyaltyConfigHolder(loyalty),
	})

	return &fixture{
		db:        db,
		svc:       svc,
		campaigns: campaigns,
		tiers:     tiers,
		genID:     node,
		tenantID:  node.Generate(),
	}
}

func defaultLoyalty() config.LoyaltyConfig {
	return config.LoyaltyConfig{
		EarnRate:       1,
		RoundingMode:   "floor",
		TierThresholds: []config.TierThreshold{{Name: "bronze", MinPoints: 0}},
	}
}

func (f *fixture) seedCustomer(t *testing.T, balance, lifetime int64) *customerdomain.Customer {
	t.Helper()
	now := time.Now().UTC()
	customer := &customerdomain.Customer{
		ID:             f.genID.Generate(),
		TenantID:       f.tenantID,
		ExternalRef:    "cust-" + f.genID.Generate().String(),
		PointsBalance:  balance,
		LifetimePoints: lifetime,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, customerrepo.Provide().Insert(context.Background(), f.db, customer))
	return customer
}

func (f *fixture) seedReward(t *testing.T, costPoints int64, inventory *int64, active bool) *rewarddomain.Reward {
	t.Helper()
	now := time.Now().UTC()
	reward := &rewarddomain.Reward{
		ID:         f.genID.Generate(),
		TenantID:   f.tenantID,
		Name:       "free coffee",
		CostPoints: costPoints,
		Inventory:  inventory,
		Active:     active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, rewardrepo.Provide().Insert(context.Background(), f.db, reward))
	return reward
}

func (f *fixture) reloadCustomer(t *testing.T, id snowflake.ID) *customerdomain.Customer {
	t.Helper()
	customer, err := customerrepo.Provide().FindByID(context.Background(), f.db, f.tenantID, id)
	require.NoError(t, err)
	require.NotNil(t, customer)
	return customer
}

func (f *fixture) noCampaign() {
	f.campaigns.On("BestMultiplierAt", mock.Anything, f.tenantID, mock.Anything).Return(1.0, nil, nil)
}

func (f *fixture) noTier() {
	f.tiers.On("TierFor", mock.Anything, f.tenantID, mock.Anything).Return(nil, nil)
}

// -- Tests --

func TestEarnCreditsPoints(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	f.noCampaign()
	f.noTier()
	customer := f.seedCustomer(t, 0, 0)

	resp, err := f.svc.Earn(context.Background(), txndomain.EarnRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		Amount:     125.75,
	})
	require.NoError(t, err)
	assert.Equal(t, txndomain.TxnTypeEarn, resp.TxnType)
	assert.Equal(t, int64(125), resp.Points)

	reloaded := f.reloadCustomer(t, customer.ID)
	assert.Equal(t, int64(125), reloaded.PointsBalance)
	assert.Equal(t, int64(125), reloaded.LifetimePoints)
}

func TestEarnAppliesCampaignMultiplier(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	f.noTier()
	campaign := &campaigndomain.Campaign{ID: f.genID.Generate(), TenantID: f.tenantID, Multiplier: 2}
	f.campaigns.On("BestMultiplierAt", mock.Anything, f.tenantID, mock.Anything).Return(2.0, campaign, nil)
	customer := f.seedCustomer(t, 0, 0)

	resp, err := f.svc.Earn(context.Background(), txndomain.EarnRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		Amount:     100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200), resp.Points)
	require.NotNil(t, resp.CampaignID)
	assert.Equal(t, campaign.ID.String(), *resp.CampaignID)
}

func TestEarnAppliesTierMultiplier(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	f.noCampaign()
	tier := &tierdomain.Tier{ID: f.genID.Generate(), TenantID: f.tenantID, Name: "gold", Multiplier: 1.5}
	f.tiers.On("TierFor", mock.Anything, f.tenantID, mock.Anything).Return(tier, nil)
	customer := f.seedCustomer(t, 0, 30_000)

	resp, err := f.svc.Earn(context.Background(), txndomain.EarnRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		Amount:     100,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(150), resp.Points)
}

func TestEarnRoundingModes(t *testing.T) {
	cases := []struct {
		mode   string
		amount float64
		want   int64
	}{
		{mode: "floor", amount: 10.9, want: 10},
		{mode: "round", amount: 10.5, want: 11},
		{mode: "ceil", amount: 10.1, want: 11},
	}

	for _, tc := range cases {
		t.Run(tc.mode, func(t *testing.T) {
			loyalty := defaultLoyalty()
			loyalty.RoundingMode = tc.mode
			f := newFixture(t, loyalty)
			f.noCampaign()
			f.noTier()
			customer := f.seedCustomer(t, 0, 0)

			resp, err := f.svc.Earn(context.Background(), txndomain.EarnRequest{
				TenantID:   f.tenantID.String(),
				CustomerID: customer.ID.String(),
				Amount:     tc.amount,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.Points)
		})
	}
}

func TestEarnIdempotency(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	f.noCampaign()
	f.noTier()
	customer := f.seedCustomer(t, 0, 0)

	req := txndomain.EarnRequest{
		TenantID:       f.tenantID.String(),
		CustomerID:     customer.ID.String(),
		Amount:         50,
		IdempotencyKey: "order-42",
	}

	first, err := f.svc.Earn(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.Earn(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	// Points applied exactly once.
	reloaded := f.reloadCustomer(t, customer.ID)
	assert.Equal(t, int64(50), reloaded.PointsBalance)
}

func TestEarnRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	customer := f.seedCustomer(t, 0, 0)

	_, err := f.svc.Earn(context.Background(), txndomain.EarnRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		Amount:     -5,
	})
	assert.ErrorIs(t, err, txndomain.ErrInvalidAmount)
}

func TestEarnUnknownCustomer(t *testing.T) {
	f := newFixture(t, defaultLoyalty())

	_, err := f.svc.Earn(context.Background(), txndomain.EarnRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: f.genID.Generate().String(),
		Amount:     10,
	})
	assert.ErrorIs(t, err, txndomain.ErrCustomerNotFound)
}

func TestRedeemDebitsPointsAndStock(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	customer := f.seedCustomer(t, 500, 500)
	inventory := int64(3)
	reward := f.seedReward(t, 200, &inventory, true)

	resp, err := f.svc.Redeem(context.Background(), txndomain.RedeemRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		RewardID:   reward.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, txndomain.TxnTypeRedeem, resp.TxnType)
	assert.Equal(t, int64(-200), resp.Points)

	reloaded := f.reloadCustomer(t, customer.ID)
	assert.Equal(t, int64(300), reloaded.PointsBalance)
	// Lifetime points are not clawed back by redemptions.
	assert.Equal(t, int64(500), reloaded.LifetimePoints)

	updatedReward, err := rewardrepo.Provide().FindByID(context.Background(), f.db, f.tenantID, reward.ID)
	require.NoError(t, err)
	require.NotNil(t, updatedReward.Inventory)
	assert.Equal(t, int64(2), *updatedReward.Inventory)
}

func TestRedeemInsufficientPoints(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	customer := f.seedCustomer(t, 100, 100)
	inventory := int64(3)
	reward := f.seedReward(t, 200, &inventory, true)

	_, err := f.svc.Redeem(context.Background(), txndomain.RedeemRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		RewardID:   reward.ID.String(),
	})
	assert.ErrorIs(t, err, txndomain.ErrInsufficientPoints)

	// Whole redemption rolled back: stock untouched.
	updatedReward, err := rewardrepo.Provide().FindByID(context.Background(), f.db, f.tenantID, reward.ID)
	require.NoError(t, err)
	require.NotNil(t, updatedReward.Inventory)
	assert.Equal(t, int64(3), *updatedReward.Inventory)

	reloaded := f.reloadCustomer(t, customer.ID)
	assert.Equal(t, int64(100), reloaded.PointsBalance)
}

func TestRedeemOutOfStock(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	customer := f.seedCustomer(t, 500, 500)
	inventory := int64(0)
	reward := f.seedReward(t, 200, &inventory, true)

	_, err := f.svc.Redeem(context.Background(), txndomain.RedeemRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		RewardID:   reward.ID.String(),
	})
	assert.ErrorIs(t, err, txndomain.ErrOutOfStock)
}

func TestRedeemUnlimitedInventory(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	customer := f.seedCustomer(t, 500, 500)
	reward := f.seedReward(t, 100, nil, true)

	_, err := f.svc.Redeem(context.Background(), txndomain.RedeemRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		RewardID:   reward.ID.String(),
	})
	require.NoError(t, err)

	reloaded := f.reloadCustomer(t, customer.ID)
	assert.Equal(t, int64(400), reloaded.PointsBalance)
}

func TestRedeemArchivedReward(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	customer := f.seedCustomer(t, 500, 500)
	reward := f.seedReward(t, 200, nil, false)

	_, err := f.svc.Redeem(context.Background(), txndomain.RedeemRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		RewardID:   reward.ID.String(),
	})
	assert.ErrorIs(t, err, txndomain.ErrRewardArchived)
}

func TestRedeemIdempotency(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	customer := f.seedCustomer(t, 500, 500)
	reward := f.seedReward(t, 200, nil, true)

	req := txndomain.RedeemRequest{
		TenantID:       f.tenantID.String(),
		CustomerID:     customer.ID.String(),
		RewardID:       reward.ID.String(),
		IdempotencyKey: "redeem-7",
	}

	first, err := f.svc.Redeem(context.Background(), req)
	require.NoError(t, err)
	second, err := f.svc.Redeem(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	reloaded := f.reloadCustomer(t, customer.ID)
	assert.Equal(t, int64(300), reloaded.PointsBalance)
}

func TestAdjustPositiveRecomputesTier(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	f.noCampaign()
	tier := &tierdomain.Tier{ID: f.genID.Generate(), TenantID: f.tenantID, Name: "silver"}
	f.tiers.On("TierFor", mock.Anything, f.tenantID, int64(5_000)).Return(tier, nil)
	customer := f.seedCustomer(t, 1_000, 4_000)

	resp, err := f.svc.Adjust(context.Background(), txndomain.AdjustRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		Points:     1_000,
		Reason:     "goodwill credit",
	})
	require.NoError(t, err)
	assert.Equal(t, txndomain.TxnTypeAdjust, resp.TxnType)

	reloaded := f.reloadCustomer(t, customer.ID)
	assert.Equal(t, int64(2_000), reloaded.PointsBalance)
	assert.Equal(t, int64(5_000), reloaded.LifetimePoints)
	require.NotNil(t, reloaded.TierID)
	assert.Equal(t, tier.ID, *reloaded.TierID)
}

func TestAdjustNegativeBeyondBalance(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	customer := f.seedCustomer(t, 100, 100)

	_, err := f.svc.Adjust(context.Background(), txndomain.AdjustRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		Points:     -500,
	})
	assert.ErrorIs(t, err, txndomain.ErrInsufficientPoints)

	reloaded := f.reloadCustomer(t, customer.ID)
	assert.Equal(t, int64(100), reloaded.PointsBalance)
}

func TestAdjustRejectsZero(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	customer := f.seedCustomer(t, 100, 100)

	_, err := f.svc.Adjust(context.Background(), txndomain.AdjustRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		Points:     0,
	})
	assert.ErrorIs(t, err, txndomain.ErrInvalidPoints)
}

func TestListByCustomer(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	f.noCampaign()
	f.noTier()
	first := f.seedCustomer(t, 0, 0)
	second := f.seedCustomer(t, 0, 0)

	for _, customer := range []*customerdomain.Customer{first, second} {
		_, err := f.svc.Earn(context.Background(), txndomain.EarnRequest{
			TenantID:   f.tenantID.String(),
			CustomerID: customer.ID.String(),
			Amount:     10,
		})
		require.NoError(t, err)
	}

	resp, err := f.svc.List(context.Background(), txndomain.ListRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: first.ID.String(),
	})
	require.NoError(t, err)
	require.Len(t, resp.Transactions, 1)
	assert.Equal(t, first.ID.String(), resp.Transactions[0].CustomerID)
}

func TestListCursorPagination(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	f.noCampaign()
	f.noTier()
	customer := f.seedCustomer(t, 0, 0)

	for i := 0; i < 5; i++ {
		_, err := f.svc.Earn(context.Background(), txndomain.EarnRequest{
			TenantID:       f.tenantID.String(),
			CustomerID:     customer.ID.String(),
			Amount:         10,
			IdempotencyKey: fmt.Sprintf("page-%d", i),
		})
		require.NoError(t, err)
	}

	seen := map[string]bool{}
	token := ""
	pages := 0
	for {
		resp, err := f.svc.List(context.Background(), txndomain.ListRequest{
			TenantID:  f.tenantID.String(),
			PageSize:  2,
			PageToken: token,
		})
		require.NoError(t, err)
		require.NotNil(t, resp.PageInfo)
		for _, txn := range resp.Transactions {
			assert.False(t, seen[txn.ID], "transaction repeated across pages")
			seen[txn.ID] = true
		}
		pages++
		if !resp.PageInfo.HasMore {
			break
		}
		require.NotEmpty(t, resp.PageInfo.NextPageToken)
		token = resp.PageInfo.NextPageToken
	}

	assert.Equal(t, 3, pages)
	assert.Len(t, seen, 5)
}

func TestListRejectsBadPageToken(t *testing.T) {
	f := newFixture(t, defaultLoyalty())
	f.noCampaign()
	f.noTier()

	_, err := f.svc.List(context.Background(), txndomain.ListRequest{
		TenantID:  f.tenantID.String(),
		PageToken: "not-a-cursor",
	})
	require.Error(t, err)
}
