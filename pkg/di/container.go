package di

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"incident-map/application/serviceimpl"
	"incident-map/domain/repositories"
	"incident-map/domain/services"
	"incident-map/infrastructure/faceapi"
	"incident-map/infrastructure/messaging"
	"incident-map/infrastructure/postgres"
	"incident-map/infrastructure/qdrant"
	"incident-map/infrastructure/redis"
	"incident-map/infrastructure/spatial"
	"incident-map/infrastructure/storage"
	"incident-map/infrastructure/websocket"
	"incident-map/infrastructure/worker"
	"incident-map/interfaces/api/handlers"
	"incident-map/pkg/config"
	"incident-map/pkg/logger"
	"incident-map/pkg/scheduler"
)

// ReclusterJobID is the scheduler id of the periodic self-healing recluster.
const ReclusterJobID = "recluster"

type Container struct {
	// Configuration
	Config *config.Config

	// Infrastructure
	DB              *gorm.DB
	RedisClient     *redis.RedisClient
	Storage         *storage.MinIOStorage
	Publisher       *messaging.AlertPublisher
	EmbeddingClient *faceapi.EmbeddingClient
	FaceIndex       *qdrant.FaceIndex
	Hub             *websocket.WebSocketManager
	JobScheduler    *scheduler.GocronScheduler
	IndexWorker     *worker.IndexWorker

	// Repositories
	UserRepository          repositories.UserRepository
	ContactRepository       repositories.ContactRepository
	ReportRepository        repositories.ReportRepository
	ReportImageRepository   repositories.ReportImageRepository
	ReportClusterRepository repositories.ReportClusterRepository

	// Spatial index adapter
	ClusterIndex   repositories.ClusterIndex
	ProximityIndex repositories.ProximityIndex
	EmbeddingIndex repositories.EmbeddingIndex

	// Services
	ClusterService services.ClusterService
	AlertService   services.AlertService
	FaceService    services.FaceService
	ReportService  services.ReportService
	UserService    services.UserService
}

func NewContainer() *Container {
	return &Container{}
}

// Initialize builds everything the HTTP server needs, including the scheduler.
func (c *Container) Initialize() error {
	if err := c.InitCore(); err != nil {
		return err
	}
	if err := c.initScheduler(); err != nil {
		return err
	}
	c.initWorkers()
	return nil
}

// InitCore builds config, infrastructure, repositories and services without
// starting background jobs. The operator CLI stops here.
func (c *Container) InitCore() error {
	if err := c.initConfig(); err != nil {
		return err
	}

	if err := c.initInfrastructure(); err != nil {
		return err
	}

	if err := c.initRepositories(); err != nil {
		return err
	}

	if err := c.initSpatialIndex(); err != nil {
		return err
	}

	return c.initServices()
}

func (c *Container) initConfig() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = cfg
	logger.Startup("config_loaded", "Configuration loaded", map[string]interface{}{
		"spatial_engine":  cfg.Spatial.Engine,
		"embedding_index": cfg.Spatial.EmbeddingIndex,
	})
	return nil
}

func (c *Container) initInfrastructure() error {
	dbConfig := postgres.DatabaseConfig{
		Host:     c.Config.Database.Host,
		Port:     c.Config.Database.Port,
		User:     c.Config.Database.User,
		Password: c.Config.Database.Password,
		DBName:   c.Config.Database.DBName,
		SSLMode:  c.Config.Database.SSLMode,
	}

	db, err := postgres.NewDatabase(dbConfig)
	if err != nil {
		return err
	}
	c.DB = db
	logger.Startup("db_connected", "Database connected", nil)

	if err := postgres.Migrate(db); err != nil {
		return err
	}
	logger.Startup("db_migrated", "Database migrated", nil)

	// Redis only backs the last-known-good region map; run without it.
	if c.Config.Redis.Enabled {
		client, err := redis.NewRedisClient(c.Config.Redis.Host, c.Config.Redis.Port, c.Config.Redis.Password, c.Config.Redis.DB)
		if err != nil {
			logger.StartupWarn("redis_connection_failed", "Redis connection failed", map[string]interface{}{"error": err.Error()})
		} else {
			c.RedisClient = client
			logger.Startup("redis_connected", "Redis connected", nil)
		}
	}

	minioStorage, err := storage.NewMinIOStorage(
		c.Config.MinIO.Endpoint,
		c.Config.MinIO.PublicURL,
		c.Config.MinIO.AccessKey,
		c.Config.MinIO.SecretKey,
		c.Config.MinIO.Bucket,
		c.Config.MinIO.UseSSL,
	)
	if err != nil {
		return err
	}
	c.Storage = minioStorage

	if c.Config.RabbitMQ.Enabled {
		publisher, err := messaging.NewAlertPublisher(c.Config.RabbitMQ.URL, c.Config.RabbitMQ.Exchange)
		if err != nil {
			// alerts still reach live websocket clients
			logger.StartupWarn("rabbitmq_connection_failed", "RabbitMQ connection failed", map[string]interface{}{"error": err.Error()})
		} else {
			c.Publisher = publisher
		}
	}

	if c.Config.FaceAPI.Enabled {
		c.EmbeddingClient = faceapi.NewEmbeddingClient(c.Config.FaceAPI.BaseURL, c.Config.FaceAPI.Timeout)
		logger.Startup("face_api_initialized", "Embedding client initialized", map[string]interface{}{"url": c.Config.FaceAPI.BaseURL})
	} else {
		logger.Startup("face_api_disabled", "Face API is disabled, images are stored without embeddings", nil)
	}

	c.Hub = websocket.Manager
	return nil
}

func (c *Container) initRepositories() error {
	c.UserRepository = postgres.NewUserRepository(c.DB)
	c.ContactRepository = postgres.NewContactRepository(c.DB)
	c.ReportRepository = postgres.NewReportRepository(c.DB)
	c.ReportImageRepository = postgres.NewReportImageRepository(c.DB)
	c.ReportClusterRepository = postgres.NewReportClusterRepository(c.DB)
	logger.Startup("repositories_initialized", "Repositories initialized", nil)
	return nil
}

func (c *Container) initSpatialIndex() error {
	postgis := postgres.NewPostGISIndex(c.DB)
	native := spatial.NewNativeIndex(c.ReportRepository, c.UserRepository, c.ReportImageRepository)

	switch c.Config.Spatial.Engine {
	case config.EnginePostGIS, "":
		c.ClusterIndex, c.ProximityIndex = postgis, postgis
	case config.EngineNative:
		c.ClusterIndex, c.ProximityIndex = native, native
	default:
		return fmt.Errorf("unknown SPATIAL_ENGINE %q", c.Config.Spatial.Engine)
	}

	switch c.Config.Spatial.EmbeddingIndex {
	case config.EnginePgvector, "":
		c.EmbeddingIndex = postgis
	case config.EngineNative:
		c.EmbeddingIndex = native
	case config.EngineQdrant:
		index, err := qdrant.NewFaceIndex(c.Config.Qdrant.Addr, c.Config.Qdrant.Collection)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), c.Config.Spatial.QueryTimeout)
		defer cancel()
		if err := index.EnsureCollection(ctx); err != nil {
			index.Close()
			return err
		}
		c.FaceIndex = index
		c.EmbeddingIndex = index
	default:
		return fmt.Errorf("unknown EMBEDDING_INDEX %q", c.Config.Spatial.EmbeddingIndex)
	}

	logger.Startup("spatial_index_initialized", "Spatial index initialized", map[string]interface{}{
		"engine":          c.Config.Spatial.Engine,
		"embedding_index": c.Config.Spatial.EmbeddingIndex,
	})
	return nil
}

func (c *Container) initServices() error {
	var cache services.RegionMapCache
	if c.RedisClient != nil {
		cache = redis.NewRegionMapCache(c.RedisClient)
	}

	var publisher services.AlertPublisher
	if c.Publisher != nil {
		publisher = c.Publisher
	}

	var embedder services.Embedder = faceapi.Disabled{}
	if c.EmbeddingClient != nil {
		embedder = c.EmbeddingClient
	}

	timeout := c.Config.Spatial.QueryTimeout

	c.ClusterService = serviceimpl.NewClusterService(c.ClusterIndex, c.ReportClusterRepository, cache, serviceimpl.ClusterSettings{
		MinPoints:         c.Config.Cluster.MinPoints,
		MaxDistanceMeters: c.Config.Cluster.MaxDistanceMeters,
		QueryTimeout:      timeout,
	})

	c.AlertService = serviceimpl.NewAlertService(c.ProximityIndex, c.ContactRepository, publisher, c.Hub, serviceimpl.AlertSettings{
		RadiusMeters:   c.Config.Alert.RadiusMeters,
		ExcludeCreator: c.Config.Alert.ExcludeCreator,
		QueryTimeout:   timeout,
	})

	c.FaceService = serviceimpl.NewFaceService(c.EmbeddingIndex, c.ReportImageRepository, c.ReportRepository, embedder, c.Storage, serviceimpl.FaceSettings{
		Limit:        c.Config.Match.Limit,
		QueryTimeout: timeout,
	})

	c.ReportService = serviceimpl.NewReportService(
		c.ReportRepository,
		c.ReportImageRepository,
		c.EmbeddingIndex,
		c.Storage,
		c.ClusterService,
		c.AlertService,
		serviceimpl.ReportSettings{ReclusterTimeout: c.Config.Cluster.ReclusterTimeout},
	)

	c.UserService = serviceimpl.NewUserService(c.UserRepository, c.ContactRepository)

	c.IndexWorker = worker.NewIndexWorker(c.ReportImageRepository, c.EmbeddingIndex, c.Config.Spatial.IndexSyncInterval)

	logger.Startup("services_initialized", "Services initialized", nil)
	return nil
}

func (c *Container) initScheduler() error {
	c.JobScheduler = scheduler.NewJobScheduler()
	if c.Config.Cluster.RefreshCron == "" {
		logger.StartupWarn("recluster_job_disabled", "CLUSTER_REFRESH_CRON is empty, periodic recluster disabled", nil)
		return nil
	}

	err := c.JobScheduler.AddJob(ReclusterJobID, c.Config.Cluster.RefreshCron, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.Config.Cluster.ReclusterTimeout)
		defer cancel()
		_, err := c.ClusterService.Recluster(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to schedule recluster job: %w", err)
	}

	c.JobScheduler.Start()
	logger.Startup("scheduler_started", "Recluster job scheduled", map[string]interface{}{"cron": c.Config.Cluster.RefreshCron})
	return nil
}

func (c *Container) initWorkers() {
	// pgvector and native search the rows directly; only an external index drifts.
	if c.FaceIndex == nil {
		return
	}
	c.IndexWorker.Start()
}

// GetHandlerServices returns the services the HTTP handlers depend on.
func (c *Container) GetHandlerServices() *handlers.Services {
	return &handlers.Services{
		ReportService:  c.ReportService,
		ClusterService: c.ClusterService,
		FaceService:    c.FaceService,
		UserService:    c.UserService,
	}
}

// NewHealthHandler reports every optional component, unconfigured ones as unavailable.
func (c *Container) NewHealthHandler() *handlers.HealthHandler {
	components := map[string]handlers.Pinger{
		"redis":    nil,
		"minio":    nil,
		"rabbitmq": nil,
		"face_api": nil,
	}
	if c.RedisClient != nil {
		components["redis"] = c.RedisClient
	}
	if c.Storage != nil {
		components["minio"] = handlers.PingFunc(c.Storage.HealthCheck)
	}
	if c.Publisher != nil {
		components["rabbitmq"] = handlers.PingFunc(func(context.Context) error { return c.Publisher.HealthCheck() })
	}
	if c.EmbeddingClient != nil {
		components["face_api"] = handlers.PingFunc(func(ctx context.Context) error {
			_, err := c.EmbeddingClient.Health(ctx)
			return err
		})
	}
	if c.FaceIndex != nil {
		components["qdrant"] = handlers.PingFunc(c.FaceIndex.EnsureCollection)
	}

	return handlers.NewHealthHandler(c.DB, c.ClusterService, components, c.Hub.ConnectedUsers)
}

func (c *Container) GetConfig() *config.Config {
	return c.Config
}

func (c *Container) Cleanup() error {
	logger.Startup("cleanup_started", "Starting cleanup", nil)

	if c.JobScheduler != nil && c.JobScheduler.IsRunning() {
		c.JobScheduler.Stop()
		logger.Startup("scheduler_stopped", "Scheduler stopped", nil)
	}

	if c.IndexWorker != nil && c.IndexWorker.IsRunning() {
		c.IndexWorker.Stop()
	}

	if c.Publisher != nil {
		if err := c.Publisher.Close(); err != nil {
			logger.StartupWarn("rabbitmq_close_failed", "Failed to close RabbitMQ", map[string]interface{}{"error": err.Error()})
		}
	}

	if c.FaceIndex != nil {
		c.FaceIndex.Close()
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			logger.StartupWarn("redis_close_failed", "Failed to close Redis", map[string]interface{}{"error": err.Error()})
		}
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.StartupWarn("db_close_failed", "Failed to close database", map[string]interface{}{"error": err.Error()})
			} else {
				logger.Startup("db_closed", "Database connection closed", nil)
			}
		}
	}

	logger.Startup("cleanup_complete", "Cleanup completed", nil)
	return nil
}
