// Package app assembles the services from configuration. The API server and the admin
// CLI share it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"driver-punch-api-server/config"
	"driver-punch-api-server/internal/auth"
	"driver-punch-api-server/internal/blockchain"
	"driver-punch-api-server/internal/database"
	"driver-punch-api-server/internal/drivers"
	"driver-punch-api-server/internal/face"
	"driver-punch-api-server/internal/models"
	"driver-punch-api-server/internal/punch"
	"driver-punch-api-server/internal/returns"
	"driver-punch-api-server/internal/s3"
	"driver-punch-api-server/internal/socket"
)

// Snapshot sizes of the live topics.
const (
	punchLogsSnapshot   = 100
	returnFormsSnapshot = 200
)

type App struct {
	Config config.Config
	Log    *slog.Logger

	Client *mongo.Client
	DB     *mongo.Database
	Users  *database.UserRepository

	Auth     *auth.Service
	Drivers  *drivers.Service
	Punch    *punch.Service
	Returns  *returns.Service
	Uploader *s3.Uploader // nil unless configured
	Anchor   *blockchain.Anchor
	Hub      *socket.Hub
	Feed     *socket.Feed

	redis *redis.Client
}

// Build connects the stores and wires every service. Optional backends (Redis, S3,
// Fabric) are only touched when configured.
func Build(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	client, db, err := database.Connect(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, Client: client, DB: db}

	if err := database.EnsureIndexes(ctx, db); err != nil {
		a.Close()
		return nil, err
	}

	ttl, err := cfg.JWT.TTL()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("jwt expiration: %w", err)
	}

	var revoker auth.Revoker
	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		revoker = auth.NewRedisRevoker(a.redis)
		log.Info("token revocation backed by redis", "addr", cfg.Redis.Addr)
	} else {
		revoker = database.NewRevokedTokenRepository(db)
	}

	if cfg.S3.Enabled() {
		a.Uploader, err = s3.NewUploader(ctx, cfg.S3)
		if err != nil {
			a.Close()
			return nil, err
		}
		log.Info("return form export enabled", "bucket", cfg.S3.Bucket)
	}

	a.Hub = socket.NewHub()
	a.Feed = socket.NewFeed(a.Hub, log)

	model := face.NewModel(cfg.Face.ModelDir)
	ledger := database.NewPunchLogRepository(db)
	a.Users = database.NewUserRepository(db)

	a.Drivers = drivers.NewService(database.NewDriverRepository(db), model, log).WithAccounts(a.Users)
	a.Auth = auth.NewService(a.Users, a.Drivers, auth.NewTokenManager(cfg.JWT.Secret, ttl), revoker, cfg.Auth.AllowAdminSignUp, log)
	a.Punch = punch.NewService(a.Drivers, ledger, model, a.Feed, log)
	a.Returns = returns.NewService(database.NewReturnFormRepository(db), ledger, a.Drivers, a.Feed, log)

	if cfg.Fabric.Enabled() {
		a.Anchor, err = blockchain.Initialize(cfg.Fabric)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Punch.WithAnchor(a.Anchor)
		log.Info("punch anchoring enabled", "channel", cfg.Fabric.ChannelName, "chaincode", cfg.Fabric.ChaincodeName)
	}

	a.registerTopics()
	return a, nil
}

func (a *App) registerTopics() {
	a.Feed.Register(socket.TopicPunchLogs, func(ctx context.Context) (any, error) {
		return a.Punch.History(ctx, models.PunchFilter{}, punchLogsSnapshot), nil
	})
	a.Feed.Register(socket.TopicReturnForms, func(ctx context.Context) (any, error) {
		return a.Returns.List(ctx, models.FormFilter{}, returnFormsSnapshot), nil
	})
	for _, status := range []models.FormStatus{models.StatusPending, models.StatusApproved, models.StatusRejected} {
		filter := models.FormFilter{Status: status}
		a.Feed.Register(socket.TopicReturnForms+":"+string(status), func(ctx context.Context) (any, error) {
			return a.Returns.List(ctx, filter, returnFormsSnapshot), nil
		})
	}
}

// RunFeed keeps live snapshots fresh until ctx is done.
func (a *App) RunFeed(ctx context.Context) {
	go a.Feed.Watch(ctx, a.DB.Collection(database.PunchLogsCollection), socket.TopicPunchLogs)
	go a.Feed.Watch(ctx, a.DB.Collection(database.ReturnFormsCollection), socket.TopicReturnForms)
	a.Feed.Run(ctx)
}

// Ping checks the primary.
func (a *App) Ping(ctx context.Context) error {
	return a.Client.Ping(ctx, nil)
}

func (a *App) Close() {
	if a.Anchor != nil {
		a.Anchor.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.Client != nil {
		_ = a.Client.Disconnect(context.Background())
	}
}
