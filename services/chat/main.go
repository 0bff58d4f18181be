package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"

	"github.com/brewchat/brewchat/pkg"
	"github.com/brewchat/brewchat/services/chat/internal/chat"
	"github.com/brewchat/brewchat/services/chat/internal/mongo"
)

const (
	appNamespace = "CHAT"
	appName      = "chat"
	appVersion   = "0.1.0"
)

func main() {
	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	baseRepo := mongo.NewBaseRepo(config, logger)
	err = baseRepo.Start(ctx)
	if err != nil {
		log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
	}

	db := baseRepo.GetDatabase()
	if db == nil {
		log.Fatalf("%s(%s) cannot initialize repository database: %v", appName, appVersion, errors.New("repository database is nil"))
	}

	sessionRepo := mongo.NewConversationRepo(db)
	if err := sessionRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("%s(%s) cannot ensure conversation indexes: %v", appName, appVersion, err)
	}

	orderURL := config.GetStringOrDef("services.order.url", "http://localhost:8081")
	orderStore, err := chat.NewAPIOrderStore(orderURL, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot create order service client: %v", appName, appVersion, err)
	}

	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	pub, err := pkg.NewNATSPublisher(natsURL)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
	}

	publisherLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	}

	extractor := chat.NewExtractor(config, logger)
	finalizer := chat.NewFinalizer(orderStore, sessionRepo, pub, logger)
	registry := chat.NewStateRegistry(sessionRepo)
	manager := chat.NewSessionManager(registry, extractor, finalizer, sessionRepo, logger)

	hd := chat.HandlerDeps{
		Manager:  manager,
		Sessions: sessionRepo,
	}

	handler := chat.NewHandler(hd, config, logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: logger,
		// The chat UI calls this service from the browser.
		DisableCORS: false,
	})

	lifecycles := []interface{}{
		apt.LifecycleHooks{OnStop: baseRepo.Stop},
		publisherLifecycle,
	}

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	err = ms.Run(ctx)
	if err != nil {
		_ = baseRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
