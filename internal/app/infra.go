package app

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/suvilkaushik/easysched-mvp/internal/config"
	"github.com/suvilkaushik/easysched-mvp/internal/logger"
	"github.com/suvilkaushik/easysched-mvp/internal/redis"
	"github.com/suvilkaushik/easysched-mvp/internal/store"
)

type Infra struct {
	Mongo *mongo.Client
	Store *store.MongoStore
	Redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	if cfg.MongoURI == "" {
		return nil, errors.New("MONGODB_URI is required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	if err := mongoClient.Ping(connectCtx, nil); err != nil {
		return nil, err
	}

	userStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := userStore.EnsureIndexes(connectCtx); err != nil {
		return nil, err
	}

	logger.Info("mongodb ready", map[string]any{
		"db": cfg.MongoDB,
	})

	infra := &Infra{
		Mongo: mongoClient,
		Store: userStore,
	}

	// Redis only backs the sync run-lock; the service degrades to
	// single-process exclusion without it.
	if cfg.RedisAddr != "" {
		redisClient, err := redis.New(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		infra.Redis = redisClient
		logger.Info("redis ready", nil)
	} else {
		logger.Warn("REDIS_ADDR not set; sync run-lock disabled", nil)
	}

	return infra, nil
}
