package config

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the connections to every backing service. Only Mongo is required;
// the others are nil when not configured.
type DB struct {
	Mongo    *mongo.Client
	MongoDB  *mongo.Database
	Postgres *gorm.DB
	Redis    *redis.Client
	Elastic  *elasticsearch.Client

	log *zap.Logger
}

// InitDB connects to MongoDB and to each optional service that is configured. An optional
// service that cannot be reached is logged and left disabled.
func InitDB(ctx context.Context, cfg *Config, log *zap.Logger) (*DB, error) {
	mongoClient, err := initMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	log.Info("Successfully connected to MongoDB", zap.String("database", cfg.MongoDB))

	db := &DB{
		Mongo:   mongoClient,
		MongoDB: mongoClient.Database(cfg.MongoDB),
		log:     log,
	}

	if cfg.PostgresConnStr != "" {
		if db.Postgres, err = initPostgres(cfg.PostgresConnStr); err != nil {
			log.Warn("PostgreSQL unavailable, notifications disabled", zap.Error(err))
		} else {
			log.Info("Successfully connected to PostgreSQL")
		}
	}

	if cfg.RedisURL != "" {
		if db.Redis, err = initRedis(ctx, cfg.RedisURL); err != nil {
			log.Warn("Redis unavailable, caching disabled", zap.Error(err))
		} else {
			log.Info("Successfully connected to Redis")
		}
	}

	if cfg.ElasticsearchURL != "" {
		if db.Elastic, err = initElasticsearch(cfg.ElasticsearchURL); err != nil {
			log.Warn("Elasticsearch unavailable, search falls back to MongoDB", zap.Error(err))
		} else {
			log.Info("Successfully connected to Elasticsearch")
		}
	}

	return db, nil
}

// initMongo initializes the MongoDB connection. Untyped sub-documents decode as maps so
// rich-text content round-trips to JSON unchanged.
func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection
	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}
	return client, nil
}

// initPostgres initializes the PostgreSQL database connection using GORM
func initPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func initRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func initElasticsearch(url string) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	if err != nil {
		return nil, err
	}

	res, err := client.Ping()
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elasticsearch ping returned %s", res.Status())
	}
	return client, nil
}

// CloseDB closes the database connections
func (db *DB) CloseDB() {
	if db.Postgres != nil {
		sqlDB, err := db.Postgres.DB()
		if err != nil {
			db.log.Error("Error getting SQL DB from GORM", zap.Error(err))
		} else if err := sqlDB.Close(); err != nil {
			db.log.Error("Error closing PostgreSQL connection", zap.Error(err))
		} else {
			db.log.Info("PostgreSQL connection closed")
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			db.log.Error("Error closing Redis connection", zap.Error(err))
		}
	}

	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.log.Error("Error closing MongoDB connection", zap.Error(err))
		} else {
			db.log.Info("MongoDB connection closed")
		}
	}
}
