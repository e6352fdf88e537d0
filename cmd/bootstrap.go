package cmd

import (
	"context"
	"database/sql"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/events"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/plan"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/preference"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/repository"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/service"
	"github.com/vibast-solutions/ms-go-payment-approvals/app/telegram"
	"github.com/vibast-solutions/ms-go-payment-approvals/config"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

type application struct {
	cfg       *config.Config
	approvals *service.ApprovalService
	// botAPI is nil when the Telegram token is not configured.
	botAPI *tgbotapi.BotAPI
	prefs  preference.Store
}

func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}
	return cfg
}

func mustOpenStore(cfg *config.Config) (*sql.DB, repository.Dialect) {
	dialect, err := repository.DialectFor(cfg.Store.Driver)
	if err != nil {
		logrus.WithError(err).Fatal("Unsupported store driver")
	}

	db, err := sql.Open(dialect.Driver, cfg.Store.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.Store.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Store.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Store.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	if err := repository.Migrate(context.Background(), db, dialect); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to migrate database")
	}

	return db, dialect
}

func mustCreateApprovalService() (*application, func()) {
	cfg := mustLoadConfig()
	db, dialect := mustOpenStore(cfg)
	closers := []func() error{db.Close}

	ids, err := repository.NewSnowflakeIDs(cfg.Approvals.NodeID)
	if err != nil {
		logrus.WithError(err).Fatal("Invalid APPROVALS_NODE_ID")
	}

	catalog, err := plan.LoadCatalog(cfg.Plans.File)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load plan catalog")
	}

	app := &application{cfg: cfg, prefs: preference.NewMemoryStore()}

	if cfg.Languages.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Languages.RedisAddr,
			Password: cfg.Languages.RedisPassword,
			DB:       cfg.Languages.RedisDB,
		})
		closers = append(closers, client.Close)
		app.prefs = preference.NewRedisStore(client, cfg.Languages.TTL)
	}

	gateways := service.Gateways{}

	if len(cfg.Events.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		closers = append(closers, publisher.Close)
		gateways.Events = publisher
	}

	if cfg.Telegram.Enabled() {
		api, err := telegram.NewBotAPI(cfg.Telegram.BotToken, cfg.Telegram.Debug)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize Telegram bot API")
		}
		app.botAPI = api

		tg := telegram.NewGateway(api, cfg.Telegram.ReviewChatID, cfg.Telegram.ReviewerLocale, catalog)
		gateways.Reviewer = tg
		gateways.Submitter = tg
		if cfg.Approvals.CredentialScopeID != 0 {
			gateways.Credentials = telegram.NewInviteIssuer(api)
		}
	} else {
		logrus.Warn("TELEGRAM_BOT_TOKEN is not set, chat delivery is disabled")
	}

	app.approvals = service.NewApprovalService(
		repository.NewPaymentRepository(db, dialect, ids),
		repository.NewPaymentEventRepository(db, dialect),
		catalog,
		gateways,
		cfg.Approvals,
	)

	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logrus.WithError(err).Warn("Failed to close resource")
			}
		}
	}

	return app, cleanup
}

func newBot(app *application) *telegram.Bot {
	return telegram.NewBot(app.botAPI, app.approvals, app.prefs, telegram.BotConfig{
		PollTimeout:        app.cfg.Telegram.PollTimeout,
		Workers:            app.cfg.Telegram.Workers,
		ProofMinTextLength: app.cfg.Approvals.ProofMinTextLength,
	})
}
