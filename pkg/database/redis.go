package database

import (
	"context"
	"fmt"

	errprocess "supply_chat_service/pkg/err"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient init Redis Sentinel connection
func NewRedisClient(masterName string, sentinelAddrs []string, db int) (*redis.Client, error) {
	rdb := redis.NewFailoverClient(&redis.FailoverOptions{
		MasterName:    masterName,
		SentinelAddrs: sentinelAddrs,
		Password:      "",
		DB:            db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("failed to connect to redis sentinel: %v", err))
	}

	return rdb, nil
}

// NewRedisSingleClient init a plain single-node Redis connection; used by
// local runs and the integration tests.
func NewRedisSingleClient(addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, errprocess.Set(fmt.Sprintf("failed to connect to redis: %v", err))
	}

	return rdb, nil
}
