package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/catalog"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/checkout"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/httpapi"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/metrics"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/mockdata"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/outbox"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/repository"
	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/ticket"
)

type Config struct {
	HTTPPort        string
	Mongo           repository.MongoConfig
	RedisAddr       string
	RedisPassword   string
	KafkaBrokers    string
	KafkaTopic      string
	SeedProducts    int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	Postgres        repository.Credentials
}

func loadConfig() *Config {
	return &Config{
		HTTPPort: getEnv("HTTP_PORT", "8080"),
		Mongo: repository.MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DB_NAME", "shopdb"),
			ConnectTimeout: time.Duration(getEnvInt("MONGO_CONNECT_TIMEOUT_SEC", 10)) * time.Second,
			MaxPoolSize:    uint64(getEnvInt("MONGO_MAX_POOL", 100)),
			MinPoolSize:    uint64(getEnvInt("MONGO_MIN_POOL", 10)),
		},
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "shop-notifications"),
		SeedProducts:    getEnvInt("SEED_PRODUCTS", 0),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		Postgres: repository.Credentials{
			Host:              getEnv("POSTGRES_HOST", "localhost"),
			Port:              getEnvInt("POSTGRES_PORT", 5432),
			User:              getEnv("POSTGRES_USER", "postgres"),
			Password:          getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:            getEnv("POSTGRES_DB", "tickets"),
			MigrationsDirPath: getEnv("MIGRATIONS_DIR", "migrations"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	// MongoDB: carts, products, users
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.Mongo)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.Mongo.URI)

	cartRepo := repository.NewMongoCartRepository(mongoDB)
	productRepo := repository.NewMongoProductRepository(mongoDB)
	userRepo := repository.NewMongoUserRepository(mongoDB)

	if err := repository.CreateCartIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("Failed to create cart indexes: %v", err)
	}
	if err := repository.CreateProductIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("Failed to create product indexes: %v", err)
	}
	if err := repository.CreateUserIndexes(ctx, mongoDB); err != nil {
		log.Fatalf("Failed to create user indexes: %v", err)
	}

	// Postgres: tickets and outbox
	ticketRepo, err := repository.NewTicketRepository(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer ticketRepo.Close()
	if err := ticketRepo.RunMigrations(&cfg.Postgres); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Printf("Connected to postgres at %s:%d", cfg.Postgres.Host, cfg.Postgres.Port)

	// Redis: catalog entry cache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	reader := catalog.NewStoreReader(productRepo, catalog.NewRedisEntryCache(redisClient))
	issuer := ticket.NewIssuer(ticketRepo)
	checkoutSvc := checkout.NewService(cartRepo, userRepo, reader, issuer)
	checkoutMetrics := metrics.NewCheckoutMetrics()

	if cfg.SeedProducts > 0 {
		seedProducts(ctx, productRepo, cfg.SeedProducts)
	}

	// Outbox poller publishing notification events
	kafkaWriter := outbox.NewKafkaWriter(cfg.KafkaTopic, strings.Split(cfg.KafkaBrokers, ",")...)
	defer kafkaWriter.Close()
	poller := outbox.NewPoller(ticketRepo, kafkaWriter)

	pollerCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	go poller.Run(pollerCtx)

	router := httpapi.NewRouter(httpapi.Handlers{
		Carts:    httpapi.NewCartHandler(cartRepo, reader, checkoutSvc, checkoutMetrics, cfg.RequestTimeout),
		Products: httpapi.NewProductHandler(productRepo, userRepo, ticketRepo, reader, cfg.RequestTimeout),
		Users:    httpapi.NewUserHandler(userRepo, cfg.RequestTimeout),
		Tickets:  httpapi.NewTicketHandler(ticketRepo, cfg.RequestTimeout),
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: otelhttp.NewHandler(router, "shop-backend"),
	}

	go func() {
		log.Printf("HTTP server listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	stopPoller()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

func seedProducts(ctx context.Context, products repository.ProductRepository, qty int) {
	for _, p := range mockdata.Products(qty) {
		if _, err := products.CreateProduct(ctx, p); err != nil {
			log.Printf("failed to seed product %q: %v", p.Title, err)
		}
	}
	log.Printf("Seeded %d products", qty)
}
