package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/mindhaven/internal/ai"
	"github.com/MrSnakeDoc/mindhaven/internal/chat"
	"github.com/MrSnakeDoc/mindhaven/internal/chatlog"
	"github.com/MrSnakeDoc/mindhaven/internal/config"
	"github.com/MrSnakeDoc/mindhaven/internal/domain"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver"
	"github.com/MrSnakeDoc/mindhaven/internal/httpserver/deps"
	"github.com/MrSnakeDoc/mindhaven/internal/journal"
	"github.com/MrSnakeDoc/mindhaven/internal/logger"
	"github.com/MrSnakeDoc/mindhaven/internal/metrics"
	"github.com/MrSnakeDoc/mindhaven/internal/music"
	"github.com/MrSnakeDoc/mindhaven/internal/redis"
	"github.com/MrSnakeDoc/mindhaven/internal/scheduler"
	"github.com/MrSnakeDoc/mindhaven/internal/session"
	dynamostore "github.com/MrSnakeDoc/mindhaven/internal/store/dynamodb"
	firestorestore "github.com/MrSnakeDoc/mindhaven/internal/store/firestore"
	"github.com/MrSnakeDoc/mindhaven/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/mindhaven/internal/store/redis"
	"github.com/MrSnakeDoc/mindhaven/internal/utils"
	"github.com/MrSnakeDoc/mindhaven/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	closers     map[string]io.Closer
	janitor     *scheduler.Janitor
}

// commentCache is what both cache backends provide.
type commentCache interface {
	ai.CommentCache
	deps.CommentFlusher
}

func New() *App {
	cfg := config.Load()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog,
		logger.String("service", "mindhaven"),
		logger.String("version", version.Version))
	ctx := context.Background()
	closers := map[string]io.Closer{}

	// Redis is optional unless it holds the entries; connect early and fail fast.
	var redisClient *goredis.Client
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		redisClient = client
		loggerClient.Info("Redis initialized successfully")
	} else {
		loggerClient.Info("Redis not configured, sessions and comment cache kept in memory")
	}

	m := metrics.New("mindhaven")

	store, err := openEntryStore(ctx, cfg, redisClient, closers)
	if err != nil {
		loggerClient.Errorf("Failed to open %s entry store: %v", cfg.StoreBackend, err)
		os.Exit(1)
	}
	loggerClient.Info("entry store ready", logger.String("backend", cfg.StoreBackend))

	var (
		comments    commentCache
		sessions    session.Store
		memSessions *session.MemoryStore
	)
	if redisClient != nil {
		comments = redisstore.NewCommentCache(redisClient, cfg.CommentCacheTTL)
		sessions = redisstore.NewSessionStore(redisClient, cfg.SessionTTL)
	} else {
		comments = memory.NewCommentCache(cfg.CommentCacheTTL)
		memSessions = session.NewMemoryStore(cfg.SessionTTL)
		sessions = memSessions
	}

	gemini, err := ai.NewGeminiModel(ctx, cfg.GenAIAPIKey, cfg.GenAIModel)
	if err != nil {
		loggerClient.Errorf("Failed to create generative model client: %v", err)
		os.Exit(1)
	}
	model := ai.NewBreaker(gemini, ai.DefaultBreakerConfig("genai"), loggerClient)

	recommender := newRecommender(ctx, cfg, loggerClient, m)

	var chatLog *chatlog.FileLog
	var sweeper scheduler.LogSweeper
	if cfg.ChatLogDir != "" {
		chatLog, err = chatlog.New(cfg.ChatLogDir)
		if err != nil {
			loggerClient.Errorf("Failed to open conversation log directory: %v", err)
			os.Exit(1)
		}
		sweeper = chatLog
		loggerClient.Info("conversation logging enabled", logger.String("dir", cfg.ChatLogDir))
	}

	sweepTrigger := make(chan struct{}, 1)
	var purger scheduler.SessionPurger
	if memSessions != nil {
		purger = memSessions
	}
	janitor := scheduler.NewJanitor(sweeper, purger, loggerClient, cfg.ChatLogSweepInterval, cfg.ChatLogRetention, sweepTrigger)

	commenter := ai.NewCommenter(model, comments, cfg.AITimeout, loggerClient, m)
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
		SecureCookies:   cfg.SecureCookies,
		Backend:         cfg.StoreBackend,
		Journal:         journal.NewPipeline(store, commenter, cfg.StoreTimeout, cfg.TimeZone, loggerClient, m),
		Assistant:       chat.NewAssistant(model, recommender, cfg.AITimeout, loggerClient, m),
		Sessions:        sessions,
		ChatLog:         chatLog,
		Comments:        comments,
		Breaker:         model,
		MusicEnabled:    cfg.MusicEnabled(),
		Metrics:         m,
		RedisClient:     redisClient,
		SweepTrigger:    sweepTrigger,
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		closers:     closers,
		janitor:     janitor,
	}
}

// openEntryStore builds the configured backend. Stores holding a client
// connection are registered in closers.
func openEntryStore(ctx context.Context, cfg *config.Config, redisClient *goredis.Client, closers map[string]io.Closer) (domain.EntryStore, error) {
	switch cfg.StoreBackend {
	case config.BackendFirestore:
		s, err := firestorestore.New(ctx, firestorestore.Options{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsFile: cfg.FirestoreCredentialsFile,
			Collection:      cfg.Collection,
		})
		if err != nil {
			return nil, err
		}
		closers["firestore"] = s
		return s, nil
	case config.BackendDynamoDB:
		s, err := dynamostore.New(ctx, dynamostore.Options{
			Region:   cfg.DynamoRegion,
			Endpoint: cfg.DynamoEndpoint,
			Table:    cfg.Collection,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		return redisstore.NewEntryStore(redisClient, cfg.Collection), nil
	case config.BackendMemory:
		return memory.NewEntryStore(nil), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// newRecommender loads the mood catalog and, with credentials, the Spotify
// client. Without credentials moods are still detected but no song is found.
func newRecommender(ctx context.Context, cfg *config.Config, log logger.Logger, m *metrics.Collector) *music.Recommender {
	catalog := music.DefaultCatalog()
	if cfg.MoodsFile != "" {
		c, err := music.LoadCatalog(cfg.MoodsFile)
		if err != nil {
			log.Errorf("Failed to load mood catalog: %v", err)
			os.Exit(1)
		}
		catalog = c
		log.Info("mood catalog loaded", logger.String("file", cfg.MoodsFile), logger.Int("moods", len(c.Moods)))
	}

	var finder music.TrackFinder
	if cfg.MusicEnabled() {
		sp, err := music.NewSpotifyCatalog(ctx, music.SpotifyOptions{
			ClientID:     cfg.SpotifyClientID,
			ClientSecret: cfg.SpotifyClientSecret,
		})
		if err != nil {
			log.Errorf("Failed to create Spotify client: %v", err)
			os.Exit(1)
		}
		finder = sp
	} else {
		log.Info("Spotify credentials not set, song suggestions disabled")
	}
	return music.NewRecommender(catalog, finder, cfg.CatalogTimeout, log, m)
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting MindHaven v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.Summary())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.janitor.Start(ctx); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}
	a.logger.Info("janitor started",
		logger.Duration("interval", a.cfg.ChatLogSweepInterval),
		logger.Duration("retention", a.cfg.ChatLogRetention))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.janitor.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	for name, c := range a.closers {
		utils.CloseLogged(c, name, a.logger)
	}
	if a.redisClient != nil {
		utils.CloseLogged(a.redisClient, "redis", a.logger)
	}

	a.logger.Info("✅ MindHaven stopped cleanly")
	return nil
}
