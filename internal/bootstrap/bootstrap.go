package bootstrap

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fathima-sithara/chat-hub/internal/auth"
	"github.com/fathima-sithara/chat-hub/internal/callindex"
	"github.com/fathima-sithara/chat-hub/internal/calls"
	"github.com/fathima-sithara/chat-hub/internal/config"
	"github.com/fathima-sithara/chat-hub/internal/friends"
	"github.com/fathima-sithara/chat-hub/internal/handlers"
	"github.com/fathima-sithara/chat-hub/internal/hub"
	"github.com/fathima-sithara/chat-hub/internal/kafka"
	"github.com/fathima-sithara/chat-hub/internal/messaging"
	"github.com/fathima-sithara/chat-hub/internal/metrics"
	"github.com/fathima-sithara/chat-hub/internal/middlewares"
	"github.com/fathima-sithara/chat-hub/internal/presence"
	"github.com/fathima-sithara/chat-hub/internal/redis"
	"github.com/fathima-sithara/chat-hub/internal/repository"
	"github.com/fathima-sithara/chat-hub/internal/routes"
	"github.com/fathima-sithara/chat-hub/internal/server"
)

type AppContext struct {
	Config    *config.Config
	Logger    *zap.Logger
	Sugar     *zap.SugaredLogger
	Store     repository.Store
	Redis     *goredis.Client
	Producer  kafka.Publisher
	Registry  *prometheus.Registry
	Metrics   *metrics.Metrics
	Hub       *hub.Hub
	Presence  *presence.Registry
	Calls     *calls.Service
	Tokens    *auth.TokenService
	Handler   *handlers.Handler
	WSHandler *handlers.WSHandler
	App       *fiber.App
}

type CleanupFn func(context.Context)

// Build wires every component from cfg. Background work (the stale-call
// reaper and the Redis fan-out subscriber) runs until the returned cleanup
// is called.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*AppContext, CleanupFn, error) {
	app := &AppContext{Config: cfg, Logger: logger, Sugar: logger.Sugar()}
	app.Sugar.Infof("Starting chat-hub in %s environment", cfg.App.Env)

	var closers []func(context.Context) error
	fail := func(err error) (*AppContext, CleanupFn, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i](context.Background())
		}
		return nil, nil, err
	}

	switch cfg.Store.Driver {
	case "mongo":
		store, err := repository.ConnectMongo(ctx, repository.MongoOptions{
			URI:      cfg.Store.MongoURI,
			Database: cfg.Store.Database,
			Timeout:  cfg.StoreTimeout,
			Retry:    repository.DefaultRetryPolicy(),
		}, logger)
		if err != nil {
			return fail(err)
		}
		app.Store = store
	default:
		app.Store = repository.NewMemoryStore()
	}
	closers = append(closers, app.Store.Close)

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = metrics.New(app.Registry)

	var (
		index   callindex.Index = callindex.NewMemory()
		fanout  *redis.Fanout
		cluster *redis.Presence
	)
	if cfg.Redis.Enabled {
		rdb, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Pass, cfg.Redis.DB, logger)
		if err != nil {
			return fail(err)
		}
		app.Redis = rdb
		closers = append(closers, func(context.Context) error { return rdb.Close() })
		index = callindex.NewRedis(rdb, cfg.Redis.Prefix)
		fanout = redis.NewFanout(rdb, cfg.Redis.Prefix, logger)
		cluster = redis.NewPresence(rdb, cfg.Redis.Prefix, cfg.PresenceTTL)
	}
	if err := index.Reset(ctx); err != nil {
		return fail(fmt.Errorf("reset call index: %w", err))
	}

	if cfg.Kafka.Enabled {
		app.Producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
	} else {
		app.Producer = kafka.Nop{}
	}
	closers = append(closers, func(context.Context) error { return app.Producer.Close() })

	hubOpts := []hub.Option{hub.WithDropHandler(func(*hub.Client) { app.Metrics.SlowDropped.Inc() })}
	if fanout != nil {
		hubOpts = append(hubOpts, hub.WithBridge(fanout))
	}
	app.Hub = hub.New(logger, hubOpts...)

	var presenceOpts []presence.Option
	if cluster != nil {
		presenceOpts = append(presenceOpts, presence.WithCluster(cluster))
	}
	app.Presence = presence.NewRegistry(app.Hub, app.Store, logger, presenceOpts...)

	app.Tokens = auth.NewTokenService(cfg.Auth.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewAuthenticator(app.Tokens, app.Store, logger)
	accounts := auth.NewAccounts(app.Store, app.Tokens, logger)

	friendSvc := friends.NewService(app.Store, app.Hub, app.Producer, logger)
	messageSvc := messaging.NewService(app.Store, app.Hub, app.Producer, logger)
	app.Calls = calls.NewService(app.Store, app.Hub, app.Presence, index, logger,
		calls.WithPublisher(app.Producer),
		calls.WithMetrics(app.Metrics),
		calls.WithStaleAfter(cfg.StaleCallAfter),
	)
	app.Presence.OnOffline(app.Calls.HandleDisconnect)

	dispatcher := handlers.NewDispatcher(handlers.DispatcherConfig{
		Rooms:     app.Presence,
		Friends:   friendSvc,
		Messaging: messageSvc,
		Calls:     app.Calls,
		Reply:     app.Hub,
		Metrics:   app.Metrics,
		Log:       logger,
		Timeout:   cfg.HandlerTimeout,
	})
	app.WSHandler = handlers.NewWSHandler(authenticator, app.Presence, dispatcher, app.Metrics, handlers.WSConfig{
		PingInterval:  cfg.PingInterval,
		WriteDeadline: cfg.WriteDeadline,
		MaxMsgSize:    cfg.WS.MaxMessageSizeBytes,
		SendBuffer:    cfg.WS.SendBuffer,
		RateLimit:     cfg.WS.RateLimit,
		RateBurst:     cfg.WS.RateBurst,
	}, logger)
	app.Handler = handlers.NewHandler(handlers.HandlerDeps{
		Accounts:     accounts,
		Users:        app.Store,
		Online:       app.Presence,
		Friends:      friendSvc,
		Messaging:    messageSvc,
		Calls:        app.Calls,
		HistoryLimit: cfg.Calls.HistoryLimit,
		Log:          logger,
	})

	app.App = server.New(logger)
	routes.Setup(app.App, app.Handler, app.WSHandler, middlewares.JWTAuth(app.Tokens), app.Registry)

	bg, stop := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	workers := 1
	go func() {
		defer func() { done <- struct{}{} }()
		app.Calls.RunReaper(bg, cfg.ReapInterval)
	}()
	if fanout != nil {
		workers++
		ready := make(chan struct{})
		runErr := make(chan error, 1)
		go func() {
			defer func() { done <- struct{}{} }()
			err := fanout.Run(bg, app.Hub, ready)
			if err != nil {
				app.Sugar.Errorw("fanout subscriber stopped", "error", err)
			}
			runErr <- err
		}()
		select {
		case <-ready:
		case err := <-runErr:
			stop()
			return fail(fmt.Errorf("start fanout: %w", err))
		case <-ctx.Done():
			stop()
			return fail(ctx.Err())
		}
	}

	return app, func(ctx context.Context) {
		stop()
	wait:
		for i := 0; i < workers; i++ {
			select {
			case <-done:
			case <-ctx.Done():
				app.Sugar.Warn("background workers did not stop before shutdown deadline")
				break wait
			}
		}
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](ctx); err != nil {
				app.Sugar.Errorf("shutdown close error: %v", err)
			}
		}
		if err := logger.Sync(); err != nil {
			app.Sugar.Debugf("logger sync: %v", err)
		}
	}, nil
}
