package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	tierdomain "github.com/loyalops/perkdesk/internal/tier/domain"
	tierrepo "github.com/loyalops/perkdesk/internal/tier/repository"
)

func newTestService(t *testing.T) (tierdomain.Service, snowflake.ID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tierdomain.Tier{}))

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  tierrepo.Provide(),
	})
	return svc, node.Generate()
}

func seedTiers(t *testing.T, svc tierdomain.Service, tenantID snowflake.ID) {
	t.Helper()
	for _, tier := range []struct {
		name      string
		minPoints int64
	}{
		{name: "bronze", minPoints: 0},
		{name: "silver", minPoints: 5_000},
		{name: "gold", minPoints: 25_000},
	} {
		_, err := svc.Create(context.Background(), tierdomain.CreateRequest{
			TenantID:  tenantID.String(),
			Name:      tier.name,
			MinPoints: tier.minPoints,
		})
		require.NoError(t, err)
	}
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc, tenantID := newTestService(t)
	seedTiers(t, svc, tenantID)

	_, err := svc.Create(context.Background(), tierdomain.CreateRequest{
		TenantID: tenantID.String(),
		Name:     "gold",
	})
	assert.ErrorIs(t, err, tierdomain.ErrNameTaken)
}

func TestTierForThresholds(t *testing.T) {
	svc, tenantID := newTestService(t)
	seedTiers(t, svc, tenantID)

	cases := []struct {
		name           string
		lifetimePoints int64
		want           string
	}{
		{name: "zero points lands on bronze", lifetimePoints: 0, want: "bronze"},
		{name: "below silver threshold", lifetimePoints: 4_999, want: "bronze"},
		{name: "exactly silver threshold", lifetimePoints: 5_000, want: "silver"},
		{name: "above gold threshold", lifetimePoints: 100_000, want: "gold"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tier, err := svc.TierFor(context.Background(), tenantID, tc.lifetimePoints)
			require.NoError(t, err)
			require.NotNil(t, tier)
			assert.Equal(t, tc.want, tier.Name)
		})
	}
}

func TestTierForNoTiers(t *testing.T) {
	svc, tenantID := newTestService(t)

	tier, err := svc.TierFor(context.Background(), tenantID, 10_000)
	require.NoError(t, err)
	assert.Nil(t, tier)
}
