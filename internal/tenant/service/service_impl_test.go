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

	"github.com/loyalops/perkdesk/internal/config"
	"github.com/loyalops/perkdesk/internal/providers/email"
	"github.com/loyalops/perkdesk/internal/tenant/domain"
	tenantrepo "github.com/loyalops/perkdesk/internal/tenant/repository"
)

type fixture struct {
	db    *gorm.DB
	svc   domain.Service
	repo  domain.Repository
	genID *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	// A named shared-memory database keeps the pool's connections on the
	// same store without leaking rows across fixtures.
	dsn := fmt.Sprintf("file:tenant_svc_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Team{},
		&domain.Tenant{},
		&domain.TeamMember{},
		&domain.TenantInvite{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	repo := tenantrepo.NewRepository(db)
	svc := NewService(
		zap.NewNop(),
		db,
		config.Config{BaseURL: "https://perkdesk.test"},
		repo,
		node,
		&email.NoOpProvider{},
		nil,
	)

	return &fixture{db: db, svc: svc, repo: repo, genID: node}
}

func (f *fixture) createTenant(t *testing.T, ownerUserID snowflake.ID, name string) *domain.TenantResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), ownerUserID, domain.CreateTenantRequest{Name: name})
	require.NoError(t, err)
	return resp
}

func (f *fixture) seedInvite(t *testing.T, tenantID snowflake.ID, rawToken string, expiresAt time.Time) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.repo.CreateInvites(context.Background(), []domain.TenantInvite{{
		ID:        f.genID.Generate(),
		TenantID:  tenantID,
		Email:     "invitee@example.com",
		Roles:     []string{domain.RoleMember},
		TokenHash: hashToken(rawToken),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}}))
}

func (f *fixture) tenantCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&domain.Tenant{}).Count(&count).Error)
	return count
}

func mustParseID(t *testing.T, raw string) snowflake.ID {
	t.Helper()
	id, err := snowflake.ParseString(raw)
	require.NoError(t, err)
	return id
}

func TestCreateProvisionsOwnerMembership(t *testing.T) {
	f := newFixture(t)
	owner := f.genID.Generate()

	resp := f.createTenant(t, owner, "Acme Rewards")
	assert.Equal(t, "acme-rewards", resp.Slug)
	assert.Equal(t, "Acme Rewards", resp.Name)

	has, err := f.repo.HasConfirmedMembership(context.Background(), owner)
	require.NoError(t, err)
	assert.True(t, has)

	items, err := f.svc.ListTenantsByUser(context.Background(), owner)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, []string{domain.RoleOwner}, items[0].Roles)
}

func TestCreateRejectsSecondTenantForSameUser(t *testing.T) {
	f := newFixture(t)
	owner := f.genID.Generate()
	f.createTenant(t, owner, "Acme Rewards")

	_, err := f.svc.Create(context.Background(), owner, domain.CreateTenantRequest{Name: "Globex Points"})
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)

	// The rejected create provisioned nothing.
	assert.Equal(t, int64(1), f.tenantCount(t))
	var memberships int64
	require.NoError(t, f.db.Model(&domain.TeamMember{}).Where("user_id = ?", owner).Count(&memberships).Error)
	assert.Equal(t, int64(1), memberships)
}

func TestCreateRejectsDuplicateNormalizedName(t *testing.T) {
	f := newFixture(t)
	first := f.genID.Generate()
	second := f.genID.Generate()
	f.createTenant(t, first, "Acme Rewards")

	_, err := f.svc.Create(context.Background(), second, domain.CreateTenantRequest{Name: "  ACME   Rewards "})
	assert.ErrorIs(t, err, domain.ErrNameTaken)

	// Rejected before any side effect.
	assert.Equal(t, int64(1), f.tenantCount(t))
	has, err := f.repo.HasConfirmedMembership(context.Background(), second)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCreateSlugCollisionGetsNumericSuffix(t *testing.T) {
	f := newFixture(t)

	resp := f.createTenant(t, f.genID.Generate(), "Acme Rewards")
	assert.Equal(t, "acme-rewards", resp.Slug)

	// Different normalized name, same slug base.
	second := f.createTenant(t, f.genID.Generate(), "Acme, Rewards!")
	assert.Equal(t, "acme-rewards-1", second.Slug)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.genID.Generate(), domain.CreateTenantRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestAcceptInviteJoinsTeam(t *testing.T) {
	f := newFixture(t)
	owner := f.genID.Generate()
	tenant := f.createTenant(t, owner, "Acme Rewards")
	f.seedInvite(t, mustParseID(t, tenant.ID), "tok-join", time.Now().UTC().Add(time.Hour))

	invitee := f.genID.Generate()
	joined, err := f.svc.AcceptInvite(context.Background(), invitee, "tok-join")
	require.NoError(t, err)
	assert.Equal(t, tenant.Slug, joined.Slug)

	member, err := f.repo.GetMember(context.Background(), mustParseID(t, tenant.TeamID), invitee)
	require.NoError(t, err)
	assert.True(t, member.Confirmed)
	assert.Equal(t, []string{domain.RoleMember}, []string(member.Roles))

	// A consumed invite cannot be replayed.
	_, err = f.svc.AcceptInvite(context.Background(), f.genID.Generate(), "tok-join")
	assert.ErrorIs(t, err, domain.ErrInviteNotFound)
}

func TestAcceptInviteRejectsCrossTenantDuplicate(t *testing.T) {
	f := newFixture(t)
	ownerA := f.genID.Generate()
	ownerB := f.genID.Generate()
	acme := f.createTenant(t, ownerA, "Acme Rewards")
	f.createTenant(t, ownerB, "Globex Points")

	f.seedInvite(t, mustParseID(t, acme.ID), "tok-cross", time.Now().UTC().Add(time.Hour))

	_, err := f.svc.AcceptInvite(context.Background(), ownerB, "tok-cross")
	assert.ErrorIs(t, err, domain.ErrAlreadyMember)

	// The rejected accept does not consume the invite.
	invite, err := f.repo.GetInviteByTokenHash(context.Background(), hashToken("tok-cross"))
	require.NoError(t, err)
	assert.Nil(t, invite.AcceptedAt)
}

func TestAcceptInviteExpired(t *testing.T) {
	f := newFixture(t)
	owner := f.genID.Generate()
	tenant := f.createTenant(t, owner, "Acme Rewards")
	f.seedInvite(t, mustParseID(t, tenant.ID), "tok-stale", time.Now().UTC().Add(-time.Minute))

	_, err := f.svc.AcceptInvite(context.Background(), f.genID.Generate(), "tok-stale")
	assert.ErrorIs(t, err, domain.ErrInviteExpired)
}
