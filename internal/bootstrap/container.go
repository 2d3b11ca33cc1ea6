package bootstrap

import (
	"context"
	"log"
	"time"

	"askyourdocs-client/internal/auth"
	"askyourdocs-client/internal/channel"
	"askyourdocs-client/internal/config"
	"askyourdocs-client/internal/controller"
	"askyourdocs-client/internal/correlation"
	"askyourdocs-client/internal/gateway"
	"askyourdocs-client/internal/pkg/logger"
	"askyourdocs-client/internal/store"
	"askyourdocs-client/internal/transcript"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Container struct {
	SessionController controller.ISessionController
	DocumentGateway   gateway.IDocumentGateway
	Credentials       *auth.TokenProvider
	PubSub            *gochannel.GoChannel
	Logger            logger.ILogger
}

// NewContainer wires the chat client: credentials, session store, gateways,
// transcript engine and the controller on top. Presentation hooks come in
// through opts so cmd/chat owns all terminal interaction.
func NewContainer(cfg *config.Config, opts controller.Options) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 1. Identity
	creds := auth.NewTokenProvider(cfg.Auth.Token, func() {
		sysLogger.Warn("Bootstrap", "Session expired, login required", nil)
	})

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Session Store
	var sessions store.Store
	if cfg.Store.Backend == "redis" {
		rdb, err := store.NewRedisClient(context.Background(), cfg.Store.RedisURL)
		if err != nil {
			log.Printf("[WARN] Redis unavailable, falling back to in-memory store: %v", err)
			sessions = store.NewMemoryStore(creds.Subject())
		} else {
			sessions = store.NewRedisStore(rdb, creds.Subject())
		}
	} else {
		sessions = store.NewMemoryStore(creds.Subject())
	}

	// 4. Backend Gateways
	client := gateway.NewClient(cfg.Backend.BaseURL, creds, time.Duration(cfg.Backend.RequestTimeout)*time.Second)
	feedbackGw := gateway.NewFeedbackGateway(client)
	citationGw := gateway.NewCitationGateway(client)
	documentGw := gateway.NewDocumentGateway(client)

	// 5. Transport
	wireLogger := logger.NewIsolatedLogger(cfg.App.WireLogPath)
	newChannel := func() channel.Channel {
		return channel.NewWebsocketChannel(cfg.Backend.WebsocketURL, creds, nil, wireLogger)
	}

	// 6. Session Engine
	engine := transcript.NewEngine(sessions, pubSub, sysLogger)
	tracker := correlation.NewTracker()

	opts.SendContext = cfg.Backend.SendContext
	if opts.Email == "" {
		opts.Email = creds.Email()
	}

	sessionController := controller.NewSessionController(
		engine,
		tracker,
		sessions,
		newChannel,
		feedbackGw,
		citationGw,
		sysLogger,
		opts,
	)

	return &Container{
		SessionController: sessionController,
		DocumentGateway:   documentGw,
		Credentials:       creds,
		PubSub:            pubSub,
		Logger:            sysLogger,
	}
}
