package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectReward      = "reward"
	ObjectTier        = "tier"
	ObjectCampaign    = "campaign"
	ObjectCustomer    = "customer"
	ObjectTransaction = "transaction"
	ObjectMember      = "member"
	ObjectInvite      = "invite"
)

const (
	ActionRewardView    = "reward.view"
	ActionRewardCreate  = "reward.create"
	ActionRewardUpdate  = "reward.update"
	ActionRewardArchive = "reward.archive"

	ActionTierView   = "tier.view"
	ActionTierCreate = "tier.create"
	ActionTierUpdate = "tier.update"
	ActionTierDelete = "tier.delete"

	ActionCampaignView   = "campaign.view"
	ActionCampaignCreate = "campaign.create"
	ActionCampaignUpdate = "campaign.update"
	ActionCampaignLaunch = "campaign.launch"
	ActionCampaignEnd    = "campaign.end"

	ActionCustomerView   = "customer.view"
	ActionCustomerCreate = "customer.create"
	ActionCustomerUpdate = "customer.update"

	ActionTransactionView   = "transaction.view"
	ActionTransactionIngest = "transaction.ingest"
	ActionTransactionAdjust = "transaction.adjust"

	ActionMemberView        = "member.view"
	ActionMemberUpdateRoles = "member.update_roles"
	ActionMemberRemove      = "member.remove"

	ActionInviteView   = "invite.view"
	ActionInviteCreate = "invite.create"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, tenantID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ErrInvalidTenant
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, tenantID)
	if err != nil {
		return err
	}

	domain := fmt.Sprintf("tenant:%s", tenantID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("subject", subject),
			zap.String("tenant_id", tenantID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, tenantID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedTenantID, err := snowflake.ParseString(tenantID)
		if err != nil || parsedTenantID == 0 {
			return "", "", ErrInvalidTenant
		}
		role, err := s.roleForUser(ctx, parsedTenantID, userID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", role), nil
	}
	return "", "", ErrInvalidActor
}

// roleForUser reduces the member's role list to the strongest known role.
// Unknown role labels fall back to member.
func (s *ServiceImpl) roleForUser(ctx context.Context, tenantID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Roles datatypes.JSONSlice[string] `gorm:"column:roles"`
	}
	result := s.db.WithContext(ctx).Raw(
		`SELECT tm.roles
		 FROM team_members tm
		 JOIN tenants t ON t.team_id = tm.team_id
		 WHERE t.id = ? AND tm.user_id = ? AND tm.confirmed
		 LIMIT 1`,
		tenantID,
		userID,
	).Scan(&row)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 0 {
		return "", ErrForbidden
	}

	strongest := ""
	for _, role := range row.Roles {
		switch strings.ToLower(strings.TrimSpace(role)) {
		case "owner":
			return "owner", nil
		case "admin":
			strongest = "admin"
		case "member":
			if strongest == "" {
				strongest = "member"
			}
		}
	}
	if strongest == "" {
		strongest = "member"
	}
	return strongest, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Member permissions (read-only)
		{"role:member", ObjectReward, ActionRewardView},
		{"role:member", ObjectTier, ActionTierView},
		{"role:member", ObjectCampaign, ActionCampaignView},

		// Admin permissions
		{"role:admin", ObjectReward, ActionRewardView},
		{"role:admin", ObjectReward, ActionRewardCreate},
		{"role:admin", ObjectReward, ActionRewardUpdate},
		{"role:admin", ObjectReward, ActionRewardArchive},
		{"role:admin", ObjectTier, ActionTierView},
		{"role:admin", ObjectTier, ActionTierCreate},
		{"role:admin", ObjectTier, ActionTierUpdate},
		{"role:admin", ObjectCampaign, ActionCampaignView},
		{"role:admin", ObjectCampaign, ActionCampaignCreate},
		{"role:admin", ObjectCampaign, ActionCampaignUpdate},
		{"role:admin", ObjectCampaign, ActionCampaignLaunch},
		{"role:admin", ObjectCampaign, ActionCampaignEnd},
		{"role:admin", ObjectCustomer, ActionCustomerView},
		{"role:admin", ObjectCustomer, ActionCustomerCreate},
		{"role:admin", ObjectCustomer, ActionCustomerUpdate},
		{"role:admin", ObjectTransaction, ActionTransactionView},
		{"role:admin", ObjectTransaction, ActionTransactionAdjust},
		{"role:admin", ObjectMember, ActionMemberView},
		{"role:admin", ObjectInvite, ActionInviteView},
		{"role:admin", ObjectInvite, ActionInviteCreate},

		// Owner permissions
		{"role:owner", ObjectReward, ActionRewardView},
		{"role:owner", ObjectReward, ActionRewardCreate},
		{"role:owner", ObjectReward, ActionRewardUpdate},
		{"role:owner", ObjectReward, ActionRewardArchive},
		{"role:owner", ObjectTier, ActionTierView},
		{"role:owner", ObjectTier, ActionTierCreate},
		{"role:owner", ObjectTier, ActionTierUpdate},
		{"role:owner", ObjectTier, ActionTierDelete},
		{"role:owner", ObjectCampaign, ActionCampaignView},
		{"role:owner", ObjectCampaign, ActionCampaignCreate},
		{"role:owner", ObjectCampaign, ActionCampaignUpdate},
		{"role:owner", ObjectCampaign, ActionCampaignLaunch},
		{"role:owner", ObjectCampaign, ActionCampaignEnd},
		{"role:owner", ObjectCustomer, ActionCustomerView},
		{"role:owner", ObjectCustomer, ActionCustomerCreate},
		{"role:owner", ObjectCustomer, ActionCustomerUpdate},
		{"role:owner", ObjectTransaction, ActionTransactionView},
		{"role:owner", ObjectTransaction, ActionTransactionAdjust},
		{"role:owner", ObjectMember, ActionMemberView},
		{"role:owner", ObjectMember, ActionMemberUpdateRoles},
		{"role:owner", ObjectMember, ActionMemberRemove},
		{"role:owner", ObjectInvite, ActionInviteView},
		{"role:owner", ObjectInvite, ActionInviteCreate},

		// System permissions (ingest pipeline and automated jobs)
		{"role:system", ObjectTransaction, ActionTransactionIngest},
		{"role:system", ObjectTransaction, ActionTransactionView},
		{"role:system", ObjectCustomer, ActionCustomerView},
		{"role:system", ObjectCustomer, ActionCustomerCreate},
		{"role:system", ObjectCustomer, ActionCustomerUpdate},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
