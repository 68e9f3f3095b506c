package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// CanTestConnection rate-limits insurer connectivity tests per broker so a
// misconfigured dashboard cannot hammer an external provider.
func CanTestConnection(rdb *redis.Client, brokerID uint) (bool, string) {
	ctx := context.Background()
	minuteKey := fmt.Sprintf("conn_test_minute_%d", brokerID)
	hourKey := fmt.Sprintf("conn_test_hour_%d", brokerID)
	if cnt, _ := rdb.Get(ctx, minuteKey).Int(); cnt >= 5 {
		return false, "Too many connection tests, wait a minute"
	}
	cnt, _ := rdb.Get(ctx, hourKey).Int()
	if cnt >= 60 {
		return false, "Connection test limit reached, try again in an hour"
	}
	return true, ""
}

func MarkConnectionTest(rdb *redis.Client, brokerID uint) {
	ctx := context.Background()
	minuteKey := fmt.Sprintf("conn_test_minute_%d", brokerID)
	hourKey := fmt.Sprintf("conn_test_hour_%d", brokerID)
	rdb.Incr(ctx, minuteKey)
	rdb.Expire(ctx, minuteKey, 60*time.Second)
	rdb.Incr(ctx, hourKey)
	rdb.Expire(ctx, hourKey, time.Hour)
}
