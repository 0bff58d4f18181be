package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"

	"github.com/brewchat/brewchat/pkg"
	"github.com/brewchat/brewchat/pkg/event"
	"github.com/brewchat/brewchat/services/queue/internal/queue"
)

const (
	appNamespace = "QUEUE"
	appName      = "queue"
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

	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	stream, err := pkg.NewNATSStream(pkg.NATSStreamConfig{
		URL:          natsURL,
		StreamName:   "ORDER_EVENTS",
		Topic:        event.OrdersTopic,
		ConsumerName: "queue-board",
		MaxAge:       24 * time.Hour,
	})
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS stream: %v", appName, appVersion, err)
	}

	board := queue.NewBoard(stream, logger)
	subscriber := queue.NewOrderEventSubscriber(stream, board, logger)
	if err := subscriber.Start(ctx); err != nil {
		log.Fatalf("%s(%s) cannot subscribe to order events: %v", appName, appVersion, err)
	}

	streamLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return stream.Close()
		},
	}

	handler := queue.NewHandler(board, config, logger)

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger: logger,
		// The staff display calls this service from the browser.
		DisableCORS: false,
	})

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(streamLifecycle),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	err = ms.Run(ctx)
	if err != nil {
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
