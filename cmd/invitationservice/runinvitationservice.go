// --- File: cmd/invitationservice/runinvitationservice.go ---
package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"

	firebase "firebase.google.com/go/v4"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"

	"github.com/tinywideclouds/go-invitation-service/internal/platform/adm"
	"github.com/tinywideclouds/go-invitation-service/internal/platform/gcm"
	"github.com/tinywideclouds/go-invitation-service/internal/platform/mail"

	"github.com/tinywideclouds/go-invitation-service/internal/storage/cache"
	fsStore "github.com/tinywideclouds/go-invitation-service/internal/storage/firestore"
	redisStore "github.com/tinywideclouds/go-invitation-service/internal/storage/redis"
	"github.com/tinywideclouds/go-invitation-service/pkg/dispatch"
	"github.com/tinywideclouds/go-invitation-service/pkg/invitation"

	"github.com/tinywideclouds/go-invitation-service/invitationservice"
	"github.com/tinywideclouds/go-invitation-service/invitationservice/config"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gopkg.in/yaml.v3"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "go-invitation-service")
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Config Loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, _ := config.NewConfigFromYaml(&yamlCfg, logger)
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Infrastructure Clients ---
	psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("PubSub client failed", "err", err)
		os.Exit(1)
	}
	defer psClient.Close()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("AWS config failed", "err", err)
		os.Exit(1)
	}
	snsClient := sns.NewFromConfig(awsCfg)
	sesClient := sesv2.NewFromConfig(awsCfg)

	// --- Registration Store ---
	var regStore dispatch.RegistrationStore
	switch cfg.StorageBackend {
	case config.BackendFirestore:
		fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			logger.Error("Firestore client failed", "err", err)
			os.Exit(1)
		}
		defer fsClient.Close()
		regStore = fsStore.NewFirestoreStore(fsClient)
		logger.Info("RegistrationStore initialized", "type", "firestore")

		if cfg.Redis.CacheEnabled {
			logger.Info("Initializing Redis Cache layer...", "addr", cfg.Redis.Addr)
			redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
			if err != nil {
				logger.Error("Failed to connect to Redis", "err", err)
				os.Exit(1)
			}
			defer redisClient.Close()
			regStore = cache.NewCachedRegistrationStore(regStore, redisClient, 24*time.Hour)
			logger.Info("RegistrationStore upgraded", "type", "redis_cached_firestore")
		}
	default:
		store, err := redisStore.NewStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer store.Close()
		regStore = store
		logger.Info("RegistrationStore initialized", "type", "redis")
	}

	// --- Dispatchers ---

	// A. Amazon devices (SNS platform endpoints)
	admDispatcher := adm.NewDispatcher(snsClient, cfg.AWS.PlatformApplicationARN, cfg.Domain, logger)

	// B. Android devices (Firebase messaging)
	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID})
	if err != nil {
		logger.Error("Failed to initialize Firebase App", "err", err)
		os.Exit(1)
	}
	gcmMessaging, err := fbApp.Messaging(ctx)
	if err != nil {
		logger.Error("Failed to create messaging client", "err", err)
		os.Exit(1)
	}
	gcmDispatcher := gcm.NewDispatcher(gcmMessaging, logger)

	clouds := map[invitation.CloudType]dispatch.CloudDispatcher{
		invitation.CloudADM: admDispatcher,
		invitation.CloudGCM: gcmDispatcher,
	}
	// GCM clients register their device token directly; only ADM needs an
	// endpoint exchange before the token is storable.
	registrars := map[invitation.CloudType]dispatch.EndpointRegistrar{
		invitation.CloudADM: admDispatcher,
	}

	// C. Email fallback (SES)
	mailer := mail.NewMailer(sesClient, cfg.AWS.SendFromEmail, cfg.Domain, logger)

	// --- Consumer & Service ---
	consumer, _ := newIngestionConsumer(ctx, cfg, psClient, logger)

	service, err := invitationservice.New(
		cfg,
		consumer,
		clouds,
		registrars,
		mailer,
		regStore,
		logger,
	)
	if err != nil {
		logger.Error("Service creation failed", "err", err)
		os.Exit(1)
	}

	logger.Info("Starting service...")
	if err := service.Start(ctx); err != nil {
		logger.Error("Service shutdown with error", "err", err)
		os.Exit(1)
	}
}

func newIngestionConsumer(ctx context.Context, cfg *config.Config, psClient *pubsub.Client, logger *slog.Logger) (messagepipeline.MessageConsumer, error) {
	sub := convertPubsub(cfg.ProjectID, cfg.PubsubConsumerConfig.SubscriptionID, "subscriptions")
	topicID := convertPubsub(cfg.ProjectID, cfg.TopicID, "topics")
	dlt := convertPubsub(cfg.ProjectID, cfg.SubscriptionDLQTopicID, "topics")

	subConfig := &pubsubpb.Subscription{
		Name:               sub,
		Topic:              topicID,
		AckDeadlineSeconds: 10,
		DeadLetterPolicy: &pubsubpb.DeadLetterPolicy{
			DeadLetterTopic:     dlt,
			MaxDeliveryAttempts: 5,
		},
		EnableMessageOrdering: false,
	}
	logger.Debug("Ensuring subscription exists", "sub", subConfig.Name, "topic", subConfig.Topic)
	_, err := psClient.SubscriptionAdminClient.CreateSubscription(ctx, subConfig)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			logger.Debug("Subscription already exists, skipping creation", "sub", subConfig.Name)
		} else {
			logger.Error("Failed to create subscription", "sub", subConfig.Name, "err", err)
			return nil, fmt.Errorf("could not create sub: %s", sub)
		}
	}

	return messagepipeline.NewGooglePubsubConsumer(
		messagepipeline.NewGooglePubsubConsumerDefaults(subConfig.Name), psClient, logger,
	)
}

type PS string

func convertPubsub(project, id string, ps PS) string {
	return fmt.Sprintf("projects/%s/%s/%s", project, ps, id)
}
