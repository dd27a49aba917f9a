package redis

import (
	"context"
	"fmt"
	"mashub/api/internal/config"
	"time"

	"github.com/redis/go-redis/v9"
)

func Init(ctx context.Context, config *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", config.Redis.Addr, err)
	}
	return client, nil
}
