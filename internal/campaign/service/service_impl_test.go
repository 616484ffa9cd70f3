package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	campaigndomain "github.com/loyalops/perkdesk/internal/campaign/domain"
	campaignrepo "github.com/loyalops/perkdesk/internal/campaign/repository"
)

type fixture struct {
	svc      campaigndomain.Service
	genID    *snowflake.Node
	tenantID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:campaign_svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&campaigndomain.Campaign{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  campaignrepo.Provide(),
	})

	return &fixture{svc: svc, genID: node, tenantID: node.Generate()}
}

func (f *fixture) create(t *testing.T, name string, multiplier float64, startsAt, endsAt time.Time) *campaigndomain.Response {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), campaigndomain.CreateRequest{
		TenantID:   f.tenantID.String(),
		Name:       name,
		Multiplier: multiplier,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
	})
	require.NoError(t, err)
	return resp
}

func TestCampaignLifecycle(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	resp := f.create(t, "double points week", 2, now.Add(-time.Hour), now.Add(24*time.Hour))
	assert.Equal(t, campaigndomain.StatusDraft, resp.Status)

	launched, err := f.svc.Launch(context.Background(), f.tenantID.String(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, campaigndomain.StatusActive, launched.Status)

	_, err = f.svc.Launch(context.Background(), f.tenantID.String(), resp.ID)
	assert.ErrorIs(t, err, campaigndomain.ErrAlreadyActive)

	ended, err := f.svc.End(context.Background(), f.tenantID.String(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, campaigndomain.StatusEnded, ended.Status)
	assert.False(t, ended.EndsAt.After(time.Now().UTC()))

	// An ended campaign stays ended, it is not a draft again.
	_, err = f.svc.Launch(context.Background(), f.tenantID.String(), resp.ID)
	assert.ErrorIs(t, err, campaigndomain.ErrAlreadyEnded)
	_, err = f.svc.End(context.Background(), f.tenantID.String(), resp.ID)
	assert.ErrorIs(t, err, campaigndomain.ErrAlreadyEnded)

	reloaded, err := f.svc.GetByID(context.Background(), f.tenantID.String(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, campaigndomain.StatusEnded, reloaded.Status)
}

func TestLaunchRejectsPastWindow(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	resp := f.create(t, "flash sale", 3, now.Add(-2*time.Hour), now.Add(-time.Hour))

	_, err := f.svc.Launch(context.Background(), f.tenantID.String(), resp.ID)
	assert.ErrorIs(t, err, campaigndomain.ErrAlreadyEnded)
}

func TestBestMultiplierIgnoresDrafts(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	launched := f.create(t, "weekend boost", 2, now.Add(-time.Hour), now.Add(time.Hour))
	f.create(t, "unlaunched mega boost", 5, now.Add(-time.Hour), now.Add(time.Hour))

	_, err := f.svc.Launch(context.Background(), f.tenantID.String(), launched.ID)
	require.NoError(t, err)

	multiplier, campaign, err := f.svc.BestMultiplierAt(context.Background(), f.tenantID, now)
	require.NoError(t, err)
	assert.Equal(t, 2.0, multiplier)
	require.NotNil(t, campaign)
	assert.Equal(t, launched.ID, campaign.ID.String())
}
