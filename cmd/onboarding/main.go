package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/cache"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/messagequeue/outbox"
	"github.com/wyfcoding/pkg/metrics"
	identityapp "github.com/wyfcoding/talentmarket/internal/identity/application"
	identitymessaging "github.com/wyfcoding/talentmarket/internal/identity/infrastructure/messaging"
	identitymysql "github.com/wyfcoding/talentmarket/internal/identity/infrastructure/persistence/mysql"
	identityredis "github.com/wyfcoding/talentmarket/internal/identity/infrastructure/persistence/redis"
	"github.com/wyfcoding/talentmarket/internal/identity/infrastructure/sms"
	identityhttp "github.com/wyfcoding/talentmarket/internal/identity/interfaces/http"
	notificationapp "github.com/wyfcoding/talentmarket/internal/notification/application"
	notificationdomain "github.com/wyfcoding/talentmarket/internal/notification/domain"
	notificationmysql "github.com/wyfcoding/talentmarket/internal/notification/infrastructure/persistence/mysql"
	"github.com/wyfcoding/talentmarket/internal/notification/infrastructure/sender"
	notificationconsumer "github.com/wyfcoding/talentmarket/internal/notification/interfaces/consumer"
	onboardingapp "github.com/wyfcoding/talentmarket/internal/onboarding/application"
	onboardingdomain "github.com/wyfcoding/talentmarket/internal/onboarding/domain"
	"github.com/wyfcoding/talentmarket/internal/onboarding/infrastructure/media"
	onboardingmessaging "github.com/wyfcoding/talentmarket/internal/onboarding/infrastructure/messaging"
	onboardingmysql "github.com/wyfcoding/talentmarket/internal/onboarding/infrastructure/persistence/mysql"
	onboardingredis "github.com/wyfcoding/talentmarket/internal/onboarding/infrastructure/persistence/redis"
	onboardinghttp "github.com/wyfcoding/talentmarket/internal/onboarding/interfaces/http"
	talentapp "github.com/wyfcoding/talentmarket/internal/talent/application"
	talentmysql "github.com/wyfcoding/talentmarket/internal/talent/infrastructure/persistence/mysql"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/onboarding/config.toml", "config file path")

// Config 服务扩展配置
type Config struct {
	config.Config `mapstructure:",squash"`

	Onboarding   OnboardingConfig   `mapstructure:"onboarding"`
	Identity     IdentityConfig     `mapstructure:"identity"`
	Notification NotificationConfig `mapstructure:"notification"`
}

// OnboardingConfig 入驻流程策略配置
type OnboardingConfig struct {
	RequireMFA   bool   `mapstructure:"require_mfa"`
	MinPrice     string `mapstructure:"min_price"`
	MediaDir     string `mapstructure:"media_dir"`
	MediaBaseURL string `mapstructure:"media_base_url"`
}

// IdentityConfig 身份存储配置
type IdentityConfig struct {
	Issuer                   string `mapstructure:"issuer"`
	RequireEmailConfirmation bool   `mapstructure:"require_email_confirmation"`
	SMSEnabled               bool   `mapstructure:"sms_enabled"`
}

// NotificationConfig 管理端通知配置
type NotificationConfig struct {
	AdminEmail string `mapstructure:"admin_email"`
}

func main() {
	flag.Parse()

	// 1. 配置
	var cfg Config
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. 日志
	logCfg := &logging.Config{Service: cfg.Server.Name, Level: cfg.Log.Level}
	logger := logging.NewFromConfig(logCfg)
	slog.SetDefault(logger.Logger)

	// 3. 指标
	metricsImpl := metrics.NewMetrics(cfg.Server.Name)

	// 4. 数据库
	db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	if cfg.Server.Environment == "dev" {
		if err := db.RawDB().AutoMigrate(
			&identitymysql.UserModel{},
			&identitymysql.FactorModel{},
			&onboardingmysql.ProfileModel{},
			&talentmysql.TalentContactModel{},
			&notificationdomain.AdminNotification{},
			&outbox.Message{},
		); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	// 5. Kafka & Outbox
	kafkaProducer := kafka.NewProducer(&cfg.MessageQueue.Kafka, logger, metricsImpl)
	outboxMgr := outbox.NewManager(db.RawDB(), logger.Logger)
	pusher := func(ctx context.Context, topic, key string, payload []byte) error {
		return kafkaProducer.PublishToTopic(ctx, topic, []byte(key), payload)
	}
	outboxProcessor := outbox.NewProcessor(outboxMgr, pusher, 100, 2*time.Second)

	// 6. Redis
	redisCache, err := cache.NewRedisCache(&cfg.Data.Redis, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to init redis", "error", err)
	}

	// 7. 仓储
	userRepo := identitymysql.NewUserRepository(db.RawDB())
	factorRepo := identitymysql.NewFactorRepository(db.RawDB())
	sessionRepo := identityredis.NewSessionRedisRepository(redisCache.GetClient())
	profileRepo := onboardingmysql.NewProfileRepository(db.RawDB())
	progressRepo := onboardingredis.NewProgressRedisRepository(redisCache.GetClient())
	talentRepo := talentmysql.NewTalentRepository(db.RawDB())
	notificationRepo := notificationmysql.NewNotificationRepository(db.RawDB())

	identityPublisher := identitymessaging.NewOutboxPublisher(outboxMgr)
	onboardingPublisher := onboardingmessaging.NewOutboxPublisher(outboxMgr)

	var smsSender = sms.NewUnconfiguredSMSSender()
	if cfg.Identity.SMSEnabled {
		smsSender = sms.NewMockSMSSender()
	}

	mediaStore := media.NewFilesystemStore(cfg.Onboarding.MediaDir, cfg.Onboarding.MediaBaseURL)

	// 8. 应用服务
	identityCmd := identityapp.NewIdentityCommandService(
		userRepo, factorRepo, sessionRepo, smsSender, identityPublisher,
		cfg.Identity.Issuer, cfg.Identity.RequireEmailConfirmation,
	)
	identityQuery := identityapp.NewIdentityQueryService(userRepo, factorRepo, sessionRepo)

	talentSvc := talentapp.NewTalentService(talentRepo)

	minPrice, err := decimal.NewFromString(cfg.Onboarding.MinPrice)
	if err != nil {
		minPrice = decimal.Zero
	}
	checker := onboardingapp.NewHandleChecker(profileRepo)
	orchestrator := onboardingapp.NewStepOrchestrator(profileRepo, progressRepo, mediaStore, checker, onboardingPublisher, minPrice)
	resolver := onboardingapp.NewAccountResolver(identityCmd, talentSvc, profileRepo)
	enrollment := onboardingapp.NewEnrollmentEngine(identityCmd, identityQuery, profileRepo, orchestrator, cfg.Onboarding.RequireMFA)

	notificationSvc := notificationapp.NewNotificationService(
		notificationRepo, sender.NewMockEmailSender(), cfg.Notification.AdminEmail,
	)

	// 9. 通知消费者
	completedHandler := notificationconsumer.NewOnboardingCompletedHandler(notificationSvc, logger.Logger)
	consumerCfg := cfg.MessageQueue.Kafka
	consumerCfg.Topic = onboardingdomain.OnboardingCompletedEventType
	if consumerCfg.GroupID == "" {
		consumerCfg.GroupID = "onboarding-notification-group"
	}
	consumer := kafka.NewConsumer(&consumerCfg, logger, metricsImpl)
	consumer.Start(context.Background(), 1, completedHandler.Handle)

	// 10. 接口层
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	identityhttp.NewIdentityHandler(identityCmd, identityQuery).RegisterRoutes(r)
	onboardinghttp.NewOnboardingHandler(resolver, orchestrator, enrollment, checker).RegisterRoutes(r)

	// 11. 启动
	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		outboxProcessor.Start()
		<-ctx.Done()
		outboxProcessor.Stop()
		return nil
	})

	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.HTTP.Port), Handler: r}
	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down servers...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
