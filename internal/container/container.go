package container

import (
	"context"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-identity/config"
	"github.com/oksasatya/go-ddd-identity/internal/application"
	repo "github.com/oksasatya/go-ddd-identity/internal/domain/repository"
	"github.com/oksasatya/go-ddd-identity/internal/infrastructure/memory"
	pginfra "github.com/oksasatya/go-ddd-identity/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-identity/internal/infrastructure/search"
	"github.com/oksasatya/go-ddd-identity/pkg/helpers"
	"github.com/oksasatya/go-ddd-identity/pkg/mailer"
)

// Container holds the constructed components shared by the router modules.
// It is built once in main and passed down explicitly.
type Container struct {
	Config *config.Config
	Logger *logrus.Logger

	PGPool *pgxpool.Pool
	ES     *elasticsearch.Client
	Rabbit *helpers.RabbitPublisher

	JWT     *helpers.JWTManager
	Cookies *helpers.CookieManager

	Accounts repo.AccountRepository
	Notifier application.Notifier
	Index    application.AccountIndex

	Auth  *application.AuthService
	Admin *application.AdminService
}

// New wires the services over already constructed collaborators.
// A nil index disables admin search.
func New(cfg *config.Config, logger *logrus.Logger, accounts repo.AccountRepository, notifier application.Notifier, index application.AccountIndex) *Container {
	if index == nil {
		index = application.NoopIndex()
	}
	c := &Container{
		Config:   cfg,
		Logger:   logger,
		JWT:      helpers.NewJWTManager(cfg.SessionSecret),
		Cookies:  helpers.NewCookie(cfg.CookieDomain, cfg.CookieSecure),
		Accounts: accounts,
		Notifier: notifier,
		Index:    index,
	}
	gate := application.NewGate(cfg.AdminEmails)
	tokens := application.NewTokenIssuer(accounts, cfg.VerifyTokenTTL, cfg.ResetTokenTTL)
	c.Auth = application.NewAuthService(accounts, tokens, c.JWT, gate, notifier, logger, application.AuthOptions{
		SessionTTL:         cfg.SessionTTL,
		AdminSessionTTL:    cfg.AdminSessionTTL,
		VerifyExemptEmails: cfg.VerifyExemptEmails,
	}).WithIndex(index)
	c.Admin = application.NewAdminService(accounts, gate, index, logger)
	return c
}

// Build connects the infrastructure selected by cfg and wires the services.
// The caller owns the result and must call Close.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	var (
		c        = &Container{}
		accounts repo.AccountRepository
	)
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory account store; data is lost on restart")
		accounts = memory.NewAccountRepository()
	case "postgres":
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.PGPool = pool
		accounts = pginfra.NewAccountRepository(pool)
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("init elasticsearch: %w", err)
	}
	var index application.AccountIndex
	if es != nil {
		c.ES = es
		index = search.NewAccountIndex(es, cfg.ESAccountsIndex)
	}

	var notifier application.Notifier
	switch {
	case !cfg.MailSendEnabled:
		notifier = &mailer.LogNotifier{Logger: logger}
	case cfg.RabbitMQURL != "":
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("connect rabbitmq: %w", err)
		}
		c.Rabbit = pub
		notifier = mailer.NewQueueNotifier(pub, cfg)
	default:
		notifier = mailer.NewDirectNotifier(mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender), cfg)
	}

	built := New(cfg, logger, accounts, notifier, index)
	built.PGPool, built.ES, built.Rabbit = c.PGPool, c.ES, c.Rabbit
	return built, nil
}

// Close releases every connection held by the container.
func (c *Container) Close() {
	if c == nil {
		return
	}
	c.Rabbit.Close()
	if c.PGPool != nil {
		c.PGPool.Close()
	}
}
