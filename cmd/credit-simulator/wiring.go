package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/iwvelando/credit-simulator/internal/archive"
	"github.com/iwvelando/credit-simulator/internal/catalog"
	"github.com/iwvelando/credit-simulator/internal/config"
	"github.com/iwvelando/credit-simulator/internal/metrics"
	"github.com/iwvelando/credit-simulator/internal/notify"
	"github.com/iwvelando/credit-simulator/internal/simulation"
	"github.com/iwvelando/credit-simulator/internal/storage"
	"github.com/iwvelando/credit-simulator/pkg/constants"
	"github.com/iwvelando/credit-simulator/pkg/credit"
	"github.com/iwvelando/credit-simulator/pkg/currency"
)

// services holds everything built from the configuration. close releases
// connections in reverse order of creation.
type services struct {
	simulator *simulation.Simulator
	static    *catalog.StaticSource
	metrics   *metrics.Metrics
	closers   []func()
}

func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func buildServices(ctx context.Context, conf *config.Configuration, logger *zap.Logger) (*services, error) {
	svc := &services{metrics: metrics.New()}

	var pool *pgxpool.Pool
	postgres := func() (*pgxpool.Pool, error) {
		if pool != nil {
			return pool, nil
		}
		if conf.Store.Migrate {
			if err := storage.NewMigrator(conf.Store.PostgresDSN, logger).Up(); err != nil {
				return nil, err
			}
		}
		p, err := storage.Connect(ctx, conf.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		pool = p
		svc.closers = append(svc.closers, p.Close)
		return p, nil
	}

	var source catalog.Source
	switch conf.Catalog.Source {
	case config.CatalogPostgres:
		p, err := postgres()
		if err != nil {
			svc.close()
			return nil, err
		}
		source = catalog.NewPostgresSource(p, logger)
	default:
		svc.static = catalog.NewStaticSource(conf.Catalog.ToCatalog(), logger)
		source = svc.static
	}

	var store storage.Store
	switch conf.Store.Backend {
	case constants.StoreRedis:
		client, err := storage.NewRedisClient(ctx, conf.Store.RedisAddr, conf.Store.RedisPassword, conf.Store.RedisDB)
		if err != nil {
			svc.close()
			return nil, err
		}
		svc.closers = append(svc.closers, func() { _ = client.Close() })
		store = storage.NewRedisStore(client, conf.Store.TTL, logger)
	case constants.StorePostgres:
		p, err := postgres()
		if err != nil {
			svc.close()
			return nil, err
		}
		store = storage.NewPostgresStore(p, logger)
	default:
		store = storage.NewMemoryStore(nil)
	}

	var notifier notify.Notifier
	switch conf.Notify.Backend {
	case constants.NotifierKafka:
		writer, err := notify.NewKafkaWriter(conf.Notify.Brokers, conf.Notify.Topic)
		if err != nil {
			svc.close()
			return nil, err
		}
		kafkaNotifier := notify.NewKafkaNotifier(writer, conf.Notify.Topic, logger)
		svc.closers = append(svc.closers, func() { _ = kafkaNotifier.Close() })
		notifier = kafkaNotifier
	default:
		notifier = notify.NewLogNotifier(logger)
	}

	var archiver simulation.Archiver
	if conf.Archive.Enabled {
		client, err := archive.NewClient(archive.Options{
			Endpoint:  conf.Archive.Endpoint,
			AccessKey: conf.Archive.AccessKey,
			SecretKey: conf.Archive.SecretKey,
			Bucket:    conf.Archive.Bucket,
			Region:    conf.Archive.Region,
			UseSSL:    conf.Archive.UseSSL,
		})
		if err != nil {
			svc.close()
			return nil, err
		}
		archiver = archive.NewArchiver(client, conf.Archive.Bucket, conf.Archive.Region, logger)
	}

	var evaluatorOpts []credit.Option
	if conf.Simulation.Rules {
		engine, err := credit.NewRuleEngine()
		if err != nil {
			svc.close()
			return nil, fmt.Errorf("failed to create rule engine: %w", err)
		}
		evaluatorOpts = append(evaluatorOpts, credit.WithRules(engine))
	}

	reportCurrency, err := currency.ParseCode(conf.Exchange.Currency)
	if err != nil {
		svc.close()
		return nil, err
	}

	sim, err := simulation.New(simulation.Options{
		Catalog:        source,
		Store:          store,
		Notifier:       notifier,
		Archiver:       archiver,
		Evaluator:      credit.NewEvaluator(evaluatorOpts...),
		Metrics:        svc.metrics,
		UVAIncomeLimit: conf.Simulation.UVAIncomeLimit,
		Template:       conf.Notify.Template,
		ReportCurrency: reportCurrency,
		ExchangeRate:   conf.Exchange.Rate,
		Logger:         logger,
	})
	if err != nil {
		svc.close()
		return nil, err
	}
	svc.simulator = sim

	logger.Debug("services ready",
		zap.String("op", "main.buildServices"),
		zap.String("catalog", conf.Catalog.Source),
		zap.String("store", conf.Store.Backend),
		zap.String("notify", conf.Notify.Backend),
		zap.Bool("archive", conf.Archive.Enabled),
	)
	return svc, nil
}
