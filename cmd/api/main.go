package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"os"
	"runtime"
	"strconv"
	"time"

	"amalajoint/internal/agent"
	"amalajoint/internal/auth"
	"amalajoint/internal/db"
	"amalajoint/internal/finder"
	"amalajoint/internal/geo"
	"amalajoint/internal/mailer"
	"amalajoint/internal/ratelimiter"
	"amalajoint/internal/store"
	"amalajoint/internal/verify"

	"github.com/cloudinary/cloudinary-go/v2"
	_ "github.com/lib/pq"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoadRateLimiterConfig retrieves rate limiter settings from environment variables
func LoadRateLimiterConfig() ratelimiter.Config {
	defaultRequests := 200
	defaultEnabled := false

	requestsPerTimeFrame := defaultRequests
	if val, exists := os.LookupEnv("RATELIMITER_REQUESTS_COUNT"); exists {
		if parsedVal, err := strconv.Atoi(val); err == nil {
			requestsPerTimeFrame = parsedVal
		} else {
			fmt.Println("Invalid RATELIMITER_REQUESTS_COUNT, defaulting to", defaultRequests)
		}
	}

	enabled := defaultEnabled
	if val, exists := os.LookupEnv("RATE_LIMITER_ENABLED"); exists {
		if parsedVal, err := strconv.ParseBool(val); err == nil {
			enabled = parsedVal
		} else {
			fmt.Println("Invalid RATE_LIMITER_ENABLED, defaulting to", defaultEnabled)
		}
	}

	return ratelimiter.Config{
		RequestsPerTimeFrame: requestsPerTimeFrame,
		TimeFrame:            5 * time.Second,
		Enabled:              enabled,
	}
}

// NewLogger creates a new zap logger with color.
func NewLogger() (*zap.SugaredLogger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	consoleEncoder := zapcore.NewConsoleEncoder(encoderCfg)
	level := zapcore.InfoLevel
	core := zapcore.NewCore(consoleEncoder, zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout)), level)

	logger := zap.New(core)
	return logger.Sugar(), nil
}

var version = "1.0.0"

//	@title			Amala Joint API
//	@description	API for Amala Joint, a community-driven amala spot discovery platform.

//	@contact.name	API Support
//	@contact.email	support@amalajoint.app

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@BasePath					/v1
//	@securityDefinitions.apikey	ApiKeyAuth
//	@in							header
//	@name						Authorization
//	@description

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	maxOpenConns := 30
	if val := os.Getenv("DB_MAX_OPEN_CONNS"); val != "" {
		maxOpenConns, err = strconv.Atoi(val)
		if err != nil {
			log.Fatalf("Invalid value for DB_MAX_OPEN_CONNS: %v", err)
		}
	}
	maxIdleConns := 30
	if val := os.Getenv("DB_MAX_IDLE_CONNS"); val != "" {
		maxIdleConns, err = strconv.Atoi(val)
		if err != nil {
			log.Fatalf("Invalid value for DB_MAX_IDLE_CONNS: %v", err)
		}
	}

	cfg := config{
		addr:        os.Getenv("ADDR"),
		env:         os.Getenv("ENV"),
		frontendURL: os.Getenv("FRONTEND_URL"),
		apiURL:      os.Getenv("EXTERNAL_URL"),
		db: dbConfig{
			addr:         os.Getenv("DB_ADDR"),
			maxOpenConns: maxOpenConns,
			maxIdleConns: maxIdleConns,
			maxIdleTime:  os.Getenv("DB_MAX_IDLE_TIME"),
		},
		mail: mailConfig{
			fromEmail: os.Getenv("MAILTRAP_FROM_EMAIL"),
			mailtrap: mailTrapConfig{
				apiKey: os.Getenv("MAILTRAP_API_KEY"),
			},
		},
		auth: authConfig{
			basic: basicConfig{
				user: os.Getenv("AUTH_BASIC_USER"),
				pass: os.Getenv("AUTH_BASIC_PASS"),
			},
			token: tokenConfig{
				secret:          os.Getenv("AUTH_TOKEN_SECRET"),
				refreshSecret:   os.Getenv("AUTH_TOKEN_REFRESH_SECRET"),
				accessTokenExp:  time.Hour * 24 * 3, // 3 days
				refreshTokenExp: time.Hour * 24 * 9, // 9 days
				iss:             "AmalaJoint",
			},
		},
		google: googleConfig{
			apiKey: os.Getenv("GOOGLE_API_KEY"),
		},
		gemini: geminiConfig{
			apiKey: os.Getenv("GEMINI_API_KEY"),
			model:  os.Getenv("GEMINI_MODEL"),
		},
		redis: redisConfig{
			addr: os.Getenv("REDIS_ADDR"),
		},
		rateLimiter: LoadRateLimiterConfig(),
	}

	// Logger
	logger, err := NewLogger()
	if err != nil {
		fmt.Println("Error creating logger:", err)
		return
	}
	defer logger.Sync()

	// Database
	db, err := db.New(
		cfg.db.addr,
		cfg.db.maxOpenConns,
		cfg.db.maxIdleConns,
		cfg.db.maxIdleTime,
	)
	if err != nil {
		logger.Fatal(err)
	}

	defer db.Close()
	logger.Info("database connection pool established")

	storage := store.NewStorage(db)

	// Cloudinary is optional; without it image uploads answer 503.
	var uploads *cloudinaryUploader
	if cloudinaryURL := os.Getenv("CLOUDINARY_URL"); cloudinaryURL != "" {
		cld, err := cloudinary.NewFromURL(cloudinaryURL)
		if err != nil {
			logger.Fatal(err)
		}
		uploads = &cloudinaryUploader{cld: cld}
	} else {
		logger.Warn("CLOUDINARY_URL not set, image uploads disabled")
	}

	// Mailer is optional; signups simply skip the welcome email.
	var mailClient mailer.Client
	if cfg.mail.mailtrap.apiKey != "" {
		mailtrap, err := mailer.NewMailTrapClient(cfg.mail.mailtrap.apiKey, cfg.mail.fromEmail)
		if err != nil {
			logger.Fatal(err)
		}
		mailClient = mailtrap
	} else {
		logger.Warn("MAILTRAP_API_KEY not set, welcome emails disabled")
	}

	// Gemini agent is optional; verification fails open without it and the
	// finder drops the agent source.
	var aiAgent *agent.Client
	if cfg.gemini.apiKey != "" {
		opts := []agent.Option{}
		if cfg.gemini.model != "" {
			opts = append(opts, agent.WithModel(cfg.gemini.model))
		}
		aiAgent, err = agent.NewClient(context.Background(), cfg.gemini.apiKey, opts...)
		if err != nil {
			logger.Fatal(err)
		}
	} else {
		logger.Warn("GEMINI_API_KEY not set, AI agent disabled")
	}

	// Maps client is optional; the finder drops the nearby source and the
	// places proxy endpoints answer 503.
	var maps *geo.Client
	if cfg.google.apiKey != "" {
		maps = geo.NewClient(cfg.google.apiKey)
	} else {
		logger.Warn("GOOGLE_API_KEY not set, places lookups disabled")
	}

	// Geocoding goes through Redis when available, saving repeat lookups of
	// the same addresses and coordinates.
	var geocoder finder.Geocoder
	if maps != nil {
		if cfg.redis.addr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.redis.addr})
			geocoder = geo.NewCachedGeocoder(maps, rdb, 24*time.Hour)
			logger.Info("geocode cache enabled")
		} else {
			geocoder = maps
		}
	}

	// Rate limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestsPerTimeFrame,
		cfg.rateLimiter.TimeFrame,
	)

	// Authenticator
	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.refreshSecret,
		cfg.auth.token.iss,
		cfg.auth.token.iss,
		cfg.auth.token.accessTokenExp,
		cfg.auth.token.refreshTokenExp,
	)

	var judge verify.Judge
	if aiAgent != nil {
		judge = aiAgent
	}
	var uploader verify.Uploader
	if uploads != nil {
		uploader = uploads
	}
	verifier := verify.NewService(storage.Stores, judge, uploader, logger)

	var finderAgent finder.Agent
	if aiAgent != nil {
		finderAgent = aiAgent
	}
	var nearby finder.NearbySearcher
	if maps != nil {
		nearby = maps
	}
	finderService := finder.NewService(geocoder, nearby, finderAgent, storage.Stores, logger)

	app := &application{
		config:        cfg,
		logger:        logger,
		store:         storage,
		uploads:       uploads,
		mailer:        mailClient,
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
		agent:         aiAgent,
		maps:          maps,
		verifier:      verifier,
		finder:        finderService,
	}

	// Metrics collected at http://localhost:8080/v1/debug/vars
	expvar.NewString("version").Set(version)
	expvar.Publish("database", expvar.Func(func() any {
		return db.Stats()
	}))
	expvar.Publish("goroutines", expvar.Func(func() any {
		return runtime.NumGoroutine()
	}))

	mux := app.mount()

	logger.Fatal(app.run(mux))
}
