package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/loyalops/perkdesk/internal/config"
	"github.com/loyalops/perkdesk/internal/providers/email"
	"github.com/loyalops/perkdesk/internal/tenant/domain"
	"github.com/loyalops/perkdesk/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	inviteTokenBytes = 32
	inviteTTL        = 7 * 24 * time.Hour

	maxSlugAttempts = 50
)

type service struct {
	log     *zap.Logger
	db      *gorm.DB
	repo    domain.Repository
	genID   *snowflake.Node
	email   email.Provider
	cache   domain.CacheInvalidator
	baseURL string
}

func NewService(
	log *zap.Logger,
	db *gorm.DB,
	cfg config.Config,
	repo domain.Repository,
	genID *snowflake.Node,
	emailProvider email.Provider,
	cache domain.CacheInvalidator,
) domain.Service {
	return &service{
		log:     log.Named("tenant.service"),
		db:      db,
		repo:    repo,
		genID:   genID,
		email:   emailProvider,
		cache:   cache,
		baseURL: cfg.BaseURL,
	}
}

func (s *service) Create(ctx context.Context, ownerUserID snowflake.ID, req domain.CreateTenantRequest) (*domain.TenantResponse, error) {
	if ownerUserID == 0 {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	normalized := normalizeName(name)

	// A user belongs to at most one tenant team, and provisioning a
	// tenant makes the owner a confirmed member of its team.
	hasMembership, err := s.repo.HasConfirmedMembership(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}
	if hasMembership {
		return nil, domain.ErrAlreadyMember
	}

	// The uniqueness pre-check runs before any side effect so a rejected
	// create leaves nothing behind.
	taken, err := s.repo.NormalizedNameExists(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.ErrNameTaken
	}

	tenantSlug, err := s.generateSlug(ctx, name)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	teamID := s.genID.Generate()
	tenantID := s.genID.Generate()

	tenant := domain.Tenant{
		ID:             tenantID,
		Slug:           tenantSlug,
		TeamID:         teamID,
		Name:           name,
		NormalizedName: normalized,
		OwnerUserID:    ownerUserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.CreateTeam(ctx, domain.Team{
			ID:        teamID,
			Name:      name,
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return err
		}

		if err := repo.CreateTenant(ctx, tenant); err != nil {
			return err
		}

		return repo.AddMember(ctx, domain.TeamMember{
			ID:        s.genID.Generate(),
			TeamID:    teamID,
			UserID:    ownerUserID,
			Roles:     []string{domain.RoleOwner},
			Confirmed: true,
			JoinedAt:  now,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		// Slug uniqueness is enforced by the database, the earlier
		// availability check can race a concurrent create.
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrNameTaken
		}
		return nil, err
	}

	s.log.Info("tenant created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("slug", tenantSlug),
		zap.String("owner_user_id", ownerUserID.String()),
	)

	return &domain.TenantResponse{
		ID:     tenantID.String(),
		Slug:   tenantSlug,
		TeamID: teamID.String(),
		Name:   name,
	}, nil
}

func (s *service) GetBySlug(ctx context.Context, rawSlug string) (*domain.TenantResponse, error) {
	cleaned := strings.ToLower(strings.TrimSpace(rawSlug))
	if cleaned == "" {
		return nil, domain.ErrInvalidTenant
	}

	tenant, err := s.repo.FindTenantBySlug(ctx, cleaned)
	if err != nil {
		return nil, err
	}

	return &domain.TenantResponse{
		ID:     tenant.ID.String(),
		Slug:   tenant.Slug,
		TeamID: tenant.TeamID.String(),
		Name:   tenant.Name,
	}, nil
}

func (s *service) ListTenantsByUser(ctx context.Context, userID snowflake.ID) ([]domain.TenantListResponseItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListTenantsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.TenantListResponseItem, 0, len(items))
	for _, item := range items {
		resp = append(resp, domain.TenantListResponseItem{
			ID:        item.ID.String(),
			Slug:      item.Slug,
			Name:      item.Name,
			Roles:     item.Roles,
			CreatedAt: item.CreatedAt,
		})
	}
	return resp, nil
}

func (s *service) ListMembers(ctx context.Context, tenantID snowflake.ID) ([]domain.MemberResponse, error) {
	tenant, err := s.repo.FindTenantByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.ListMembersByTeam(ctx, tenant.TeamID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.MemberResponse, 0, len(members))
	for _, member := range members {
		resp = append(resp, domain.MemberResponse{
			UserID:    member.UserID.String(),
			Roles:     member.Roles,
			Confirmed: member.Confirmed,
			JoinedAt:  member.JoinedAt,
		})
	}
	return resp, nil
}

func (s *service) InviteMembers(ctx context.Context, actorUserID snowflake.ID, tenantID snowflake.ID, invites []domain.InviteRequest) error {
	if len(invites) == 0 {
		return nil
	}

	tenant, err := s.repo.FindTenantByID(ctx, tenantID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rows := make([]domain.TenantInvite, 0, len(invites))
	type outgoing struct {
		email string
		token string
	}
	pending := make([]outgoing, 0, len(invites))

	for _, invite := range invites {
		addr, err := mail.ParseAddress(strings.TrimSpace(invite.Email))
		if err != nil {
			return domain.ErrInvalidEmail
		}

		roles := normalizeRoles(invite.Roles)
		if len(roles) == 0 {
			roles = []string{domain.RoleMember}
		}
		for _, role := range roles {
			if strings.EqualFold(role, domain.RoleOwner) {
				return domain.ErrInvalidRole
			}
		}

		rawToken, err := newRandomToken(inviteTokenBytes)
		if err != nil {
			return err
		}

		rows = append(rows, domain.TenantInvite{
			ID:        s.genID.Generate(),
			TenantID:  tenantID,
			Email:     strings.ToLower(addr.Address),
			Roles:     roles,
			TokenHash: hashToken(rawToken),
			ExpiresAt: now.Add(inviteTTL),
			CreatedAt: now,
		})
		pending = append(pending, outgoing{email: addr.Address, token: rawToken})
	}

	if err := s.repo.CreateInvites(ctx, rows); err != nil {
		return err
	}

	for _, out := range pending {
		inviteURL := fmt.Sprintf("%s/invites/accept?token=%s", s.baseURL, out.token)
		if err := s.email.SendTemplate(ctx, []string{out.email}, "invite_member", map[string]interface{}{
			"tenant_name":  tenant.Name,
			"inviter_name": actorUserID.String(),
			"invite_url":   inviteURL,
		}); err != nil {
			s.log.Warn("send invite email",
				zap.Error(err),
				zap.String("tenant_id", tenantID.String()),
			)
		}
	}

	return nil
}

func (s *service) AcceptInvite(ctx context.Context, userID snowflake.ID, rawToken string) (*domain.TenantResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrInviteNotFound
	}

	invite, err := s.repo.GetInviteByTokenHash(ctx, hashToken(token))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if invite.AcceptedAt != nil {
		return nil, domain.ErrInviteNotFound
	}
	if now.After(invite.ExpiresAt) {
		return nil, domain.ErrInviteExpired
	}

	tenant, err := s.repo.FindTenantByID(ctx, invite.TenantID)
	if err != nil {
		return nil, err
	}

	// A user belongs to at most one tenant team. Reject cross-tenant
	// duplicates before creating anything.
	hasMembership, err := s.repo.HasConfirmedMembership(ctx, userID)
	if err != nil {
		return nil, err
	}
	if hasMembership {
		return nil, domain.ErrAlreadyMember
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.MarkInviteAccepted(ctx, invite.ID, now); err != nil {
			return err
		}

		return repo.AddMember(ctx, domain.TeamMember{
			ID:        s.genID.Generate(),
			TeamID:    tenant.TeamID,
			UserID:    userID,
			Roles:     invite.Roles,
			Confirmed: true,
			JoinedAt:  now,
			CreatedAt: now,
			UpdatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(userID, tenant.TeamID)

	return &domain.TenantResponse{
		ID:     tenant.ID.String(),
		Slug:   tenant.Slug,
		TeamID: tenant.TeamID.String(),
		Name:   tenant.Name,
	}, nil
}

func (s *service) UpdateMemberRoles(ctx context.Context, tenantID snowflake.ID, memberUserID snowflake.ID, roles []string) error {
	tenant, err := s.repo.FindTenantByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.OwnerUserID == memberUserID {
		return domain.ErrOwnerImmutable
	}

	normalized := normalizeRoles(roles)
	if len(normalized) == 0 {
		return domain.ErrInvalidRole
	}
	for _, role := range normalized {
		if strings.EqualFold(role, domain.RoleOwner) {
			return domain.ErrInvalidRole
		}
	}

	if err := s.repo.UpdateMemberRoles(ctx, tenant.TeamID, memberUserID, normalized); err != nil {
		return err
	}

	s.invalidate(memberUserID, tenant.TeamID)
	return nil
}

func (s *service) RemoveMember(ctx context.Context, tenantID snowflake.ID, memberUserID snowflake.ID) error {
	tenant, err := s.repo.FindTenantByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if tenant.OwnerUserID == memberUserID {
		return domain.ErrOwnerImmutable
	}

	if err := s.repo.RemoveMember(ctx, tenant.TeamID, memberUserID); err != nil {
		return err
	}

	s.invalidate(memberUserID, tenant.TeamID)
	return nil
}

func (s *service) invalidate(userID, teamID snowflake.ID) {
	if s.cache == nil {
		return
	}
	s.cache.Invalidate(userID, teamID)
}

func (s *service) generateSlug(ctx context.Context, name string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		return "", domain.ErrInvalidName
	}

	candidate := base
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt)
	}

	return "", domain.ErrNameTaken
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func normalizeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		cleaned := strings.ToLower(strings.TrimSpace(role))
		if cleaned == "" {
			continue
		}
		out = append(out, cleaned)
	}
	return out
}

func newRandomToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
