package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/galnet-crawler/internal/domain"
)

// Redis keys holding the crawl state.
const (
	redisDownloadedKey = "galnet:downloaded-pages"
	redisFailedKey     = "galnet:failed-pages"
)

// RedisLog is a PageLog backend for deployments where several crawler hosts
// share state: a set for downloaded pages and a hash url -> ErroredPage JSON
// for failed ones. The canonical JSON-files interface stays with FileLog.
type RedisLog struct {
	client *redis.Client
}

func NewRedisLog(client *redis.Client) *RedisLog {
	return &RedisLog{client: client}
}

func (l *RedisLog) Downloaded(ctx context.Context) (map[string]struct{}, error) {
	urls, err := l.client.SMembers(ctx, redisDownloadedKey).Result()
	if err != nil {
		return nil, fmt.Errorf("loading downloaded pages: %w", err)
	}
	downloaded := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		downloaded[u] = struct{}{}
	}
	return downloaded, nil
}

func (l *RedisLog) Failed(ctx context.Context) (map[string]domain.ErroredPage, error) {
	entries, err := l.client.HGetAll(ctx, redisFailedKey).Result()
	if err != nil {
		return nil, fmt.Errorf("loading failed pages: %w", err)
	}
	failed := make(map[string]domain.ErroredPage, len(entries))
	for url, raw := range entries {
		var page domain.ErroredPage
		if err := json.Unmarshal([]byte(raw), &page); err != nil {
			return nil, fmt.Errorf("decoding failed page %q: %w", url, err)
		}
		failed[url] = page
	}
	return failed, nil
}

func (l *RedisLog) Save(ctx context.Context, downloaded map[string]struct{}, failed map[string]domain.ErroredPage) error {
	pipe := l.client.TxPipeline()

	pipe.Del(ctx, redisDownloadedKey)
	if len(downloaded) > 0 {
		members := make([]interface{}, 0, len(downloaded))
		for u := range downloaded {
			members = append(members, u)
		}
		pipe.SAdd(ctx, redisDownloadedKey, members...)
	}

	pipe.Del(ctx, redisFailedKey)
	if len(failed) > 0 {
		fields := make(map[string]interface{}, len(failed))
		for url, page := range failed {
			raw, err := json.Marshal(page)
			if err != nil {
				return fmt.Errorf("encoding failed page %q: %w", url, err)
			}
			fields[url] = raw
		}
		pipe.HSet(ctx, redisFailedKey, fields)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving crawl state: %w", err)
	}
	return nil
}
