package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/loyalops/perkdesk/internal/access"
	accessrepo "github.com/loyalops/perkdesk/internal/access/repository"
	"github.com/loyalops/perkdesk/internal/auth"
	authdomain "github.com/loyalops/perkdesk/internal/auth/domain"
	"github.com/loyalops/perkdesk/internal/auth/session"
	"github.com/loyalops/perkdesk/internal/authorization"
	"github.com/loyalops/perkdesk/internal/campaign"
	campaigndomain "github.com/loyalops/perkdesk/internal/campaign/domain"
	"github.com/loyalops/perkdesk/internal/config"
	"github.com/loyalops/perkdesk/internal/customer"
	customerdomain "github.com/loyalops/perkdesk/internal/customer/domain"
	"github.com/loyalops/perkdesk/internal/observability"
	obsmiddleware "github.com/loyalops/perkdesk/internal/observability/logger"
	obsmetrics "github.com/loyalops/perkdesk/internal/observability/metrics"
	obstracing "github.com/loyalops/perkdesk/internal/observability/tracing"
	"github.com/loyalops/perkdesk/internal/providers/email"
	"github.com/loyalops/perkdesk/internal/ratelimit"
	"github.com/loyalops/perkdesk/internal/reward"
	rewarddomain "github.com/loyalops/perkdesk/internal/reward/domain"
	"github.com/loyalops/perkdesk/internal/tenant"
	tenantdomain "github.com/loyalops/perkdesk/internal/tenant/domain"
	"github.com/loyalops/perkdesk/internal/tier"
	tierdomain "github.com/loyalops/perkdesk/internal/tier/domain"
	"github.com/loyalops/perkdesk/internal/transaction"
	txndomain "github.com/loyalops/perkdesk/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	auth.Module,
	session.Module,
	email.Module,
	authorization.Module,
	tenant.Module,
	accessrepo.Module,
	access.Module,
	ratelimit.Module,
	tier.Module,
	reward.Module,
	campaign.Module,
	customer.Module,
	transaction.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(httpMetrics.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.ListenAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	log         *zap.Logger
	authsvc     authdomain.Service
	sessions    *session.Manager
	genID       *snowflake.Node
	gate        *access.Gate
	authzSvc    authorization.Service
	tenantSvc   tenantdomain.Service
	tierSvc     tierdomain.Service
	rewardSvc   rewarddomain.Service
	campaignSvc campaigndomain.Service
	customerSvc customerdomain.Service
	txnSvc      txndomain.Service
	obsMetrics  *obsmetrics.Metrics
	txnLimiter  *ratelimit.TxnIngestLimiter
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	Log         *zap.Logger
	Authsvc     authdomain.Service
	Sessions    *session.Manager
	GenID       *snowflake.Node
	Gate        *access.Gate
	AuthzSvc    authorization.Service
	TenantSvc   tenantdomain.Service
	TierSvc     tierdomain.Service
	RewardSvc   rewarddomain.Service
	CampaignSvc campaigndomain.Service
	CustomerSvc customerdomain.Service
	TxnSvc      txndomain.Service
	ObsMetrics  *obsmetrics.Metrics         `optional:"true"`
	TxnLimiter  *ratelimit.TxnIngestLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		log:         p.Log.Named("server"),
		authsvc:     p.Authsvc,
		sessions:    p.Sessions,
		genID:       p.GenID,
		gate:        p.Gate,
		authzSvc:    p.AuthzSvc,
		tenantSvc:   p.TenantSvc,
		tierSvc:     p.TierSvc,
		rewardSvc:   p.RewardSvc,
		campaignSvc: p.CampaignSvc,
		customerSvc: p.CustomerSvc,
		txnSvc:      p.TxnSvc,
		obsMetrics:  p.ObsMetrics,
		txnLimiter:  p.TxnLimiter,
	}

	svc.registerAuthRoutes()
	svc.registerWorkspaceRoutes()
	svc.registerAdminRoutes()
	svc.registerUserRoutes()

	if svc.cfg.Environment != "production" {
		svc.engine.POST("/test/cleanup", svc.TestCleanup)
	}

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/auth")

	authGroup.POST("/signup", s.Signup)
	authGroup.POST("/login", s.Login)
	authGroup.POST("/logout", s.Logout)
	authGroup.GET("/me", s.WebAuthRequired(), s.Me)
	authGroup.POST("/change-password", s.WebAuthRequired(), s.ChangePassword)
	authGroup.POST("/verify-email/request", s.WebAuthRequired(), s.RequestEmailVerification)
	authGroup.POST("/verify-email/confirm", s.ConfirmEmailVerification)
}

func (s *Server) registerWorkspaceRoutes() {
	s.engine.GET("/choose-workspace", s.WebAuthRequired(), s.ListWorkspaces)
	s.engine.POST("/workspaces", s.WebAuthRequired(), s.CreateWorkspace)
	s.engine.POST("/invites/accept", s.WebAuthRequired(), s.AcceptInvite)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/t/:slug/admin", s.TenantAccess(access.AreaAdmin))

	admin.GET("/overview", s.AdminOverview)

	// -------- Rewards --------
	admin.GET("/rewards", s.ListRewards)
	admin.POST("/rewards", s.CreateReward)
	admin.GET("/rewards/:id", s.GetRewardByID)
	admin.PATCH("/rewards/:id", s.UpdateReward)
	admin.POST("/rewards/:id/archive", s.authorizeTenantAction(authorization.ObjectReward, authorization.ActionRewardArchive), s.ArchiveReward)

	// -------- Tiers --------
	admin.GET("/tiers", s.ListTiers)
	admin.POST("/tiers", s.CreateTier)
	admin.GET("/tiers/:id", s.GetTierByID)
	admin.PATCH("/tiers/:id", s.UpdateTier)
	admin.DELETE("/tiers/:id", s.authorizeTenantAction(authorization.ObjectTier, authorization.ActionTierDelete), s.DeleteTier)

	// -------- Campaigns --------
	admin.GET("/campaigns", s.ListCampaigns)
	admin.POST("/campaigns", s.CreateCampaign)
	admin.GET("/campaigns/:id", s.GetCampaignByID)
	admin.PATCH("/campaigns/:id", s.UpdateCampaign)
	admin.POST("/campaigns/:id/launch", s.authorizeTenantAction(authorization.ObjectCampaign, authorization.ActionCampaignLaunch), s.LaunchCampaign)
	admin.POST("/campaigns/:id/end", s.authorizeTenantAction(authorization.ObjectCampaign, authorization.ActionCampaignEnd), s.EndCampaign)

	// -------- Customers --------
	admin.GET("/customers", s.ListCustomers)
	admin.POST("/customers", s.CreateCustomer)
	admin.GET("/customers/:id", s.GetCustomerByID)
	admin.PATCH("/customers/:id", s.UpdateCustomer)

	// -------- Transactions --------
	admin.GET("/transactions", s.ListTransactions)
	admin.GET("/transactions/:id", s.GetTransactionByID)
	admin.POST("/transactions/earn", s.TxnIngestRateLimit(), s.EarnPoints)
	admin.POST("/transactions/redeem", s.TxnIngestRateLimit(), s.RedeemReward)
	admin.POST("/transactions/adjust", s.authorizeTenantAction(authorization.ObjectTransaction, authorization.ActionTransactionAdjust), s.AdjustPoints)

	// -------- Members --------
	admin.GET("/members", s.ListMembers)
	admin.POST("/invites", s.authorizeTenantAction(authorization.ObjectInvite, authorization.ActionInviteCreate), s.InviteMembers)
	admin.PATCH("/members/:userId/roles", s.authorizeTenantAction(authorization.ObjectMember, authorization.ActionMemberUpdateRoles), s.UpdateMemberRoles)
	admin.DELETE("/members/:userId", s.authorizeTenantAction(authorization.ObjectMember, authorization.ActionMemberRemove), s.RemoveMember)
}

func (s *Server) registerUserRoutes() {
	user := s.engine.Group("/t/:slug/user", s.TenantAccess(access.AreaUser))

	user.GET("/overview", s.UserOverview)
}
