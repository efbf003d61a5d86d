package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"supply_chat_service/internal/chat/app"
	"supply_chat_service/internal/chat/repository"
	"supply_chat_service/internal/chat/router"
	"supply_chat_service/pkg/config"
	"supply_chat_service/pkg/database"
	"supply_chat_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.ChatService, config.EnvConfig.ChatServiceLogPath)
	cfg := config.LoadConfig[config.Chat](config.EnvConfig.ChatService, config.EnvConfig.ChatServiceYAMLPath)
	cfg.ApplyDefaults()

	ctx := context.Background()

	// message history store
	mongoURI := fmt.Sprintf("mongodb://%s:%s@%s:%d", cfg.Mongo.User, cfg.Mongo.Password, cfg.Mongo.Host, cfg.Mongo.Port)
	mongo, err := database.NewMongoDB(ctx,
		database.Connection{
			ConnectStr:    mongoURI,
			RetryCount:    cfg.Mongo.RetryCount,
			RetryInterval: time.Duration(cfg.Mongo.RetryInterval),
		},
		cfg.Mongo.Database)
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to mongoDB database after retries",
			zap.String("address", fmt.Sprintf("[%s]", mongoURI)),
			zap.Error(err),
		)
	}
	defer mongo.Close(ctx)

	if err := repository.EnsureIndexes(ctx, mongo.Database); err != nil {
		logger.Log.Warn("ensure message indexes failed", zap.Error(err))
	}

	// redis pub/sub carries room fan-out across nodes
	masterName, sentinel := config.GetRedisSetting()
	redisClient, err := database.NewRedisClient(masterName, sentinel, cfg.Redis.RedisDB)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("connect redis err : %v", err))
	}

	// orders table, read-only, for buyer/seller authorization
	pgURI := fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
		cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, cfg.PostgreSQL.Database)
	pgPool, err := database.NewDatabaseConnection(database.Connection{
		ConnectStr:    pgURI,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.String("address", fmt.Sprintf("[%s]", pgURI)),
			zap.Error(err),
		)
	}
	defer pgPool.Close()

	// analytics event stream; optional, runs without it
	var sink app.EventSink
	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Kafka.Brokers,
			Topic:         cfg.Kafka.Topic,
			RetryCount:    cfg.Kafka.RetryCount,
			RetryInterval: time.Duration(cfg.Kafka.RetryInterval),
		})
		if err != nil {
			logger.Log.Warn("kafka disabled", zap.Error(err))
		} else {
			defer writer.Close()
			sink = writer
		}
	}

	msgRepo := repository.NewMongoChatMessageRepository(mongo.Database)
	orderRepo := repository.NewOrderRepository(pgPool)
	transport := repository.NewRedisPubSub(redisClient)

	hub := app.NewHub(transport, cfg.Typing.LocationTTL, cfg.Typing.OrderTTL)
	roomUC := app.NewRoomUseCase(hub, orderRepo)
	sendMessageUC := app.NewSendMessageUseCase(msgRepo, orderRepo, hub, sink)
	historyUC := app.NewHistoryUseCase(msgRepo, orderRepo, cfg.History.PageSize, cfg.History.ReadTimeout)

	r := fiber.New()
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.ChatServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, app.NewChatWebsocketHandler(roomUC, sendMessageUC, hub), historyUC)

	port := ":" + cfg.Port
	log.Printf("Chat Service listening on %s", port)
	if err := r.Listen(port); err != nil {
		log.Fatalf("Failed to start Fiber: %v", err)
	}
}
