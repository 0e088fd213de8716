package httpx

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// unreachableRedis returns a client whose every command fails fast.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisRateLimiterFailOpen(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	rl := NewRedisRateLimiter(rdb, 5, time.Minute, "rl-test")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	rl.Middleware(logger, true)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("fail-open status = %d, want request served", rec.Code)
	}

	rec = httptest.NewRecorder()
	rl.Middleware(logger, false)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("fail-closed status = %d", rec.Code)
	}
}

func TestNewRedisRateLimiterDefaults(t *testing.T) {
	rl := NewRedisRateLimiter(nil, 0, 0, "  ")
	if rl.limit != 60 {
		t.Errorf("limit = %d", rl.limit)
	}
	if rl.window != time.Minute {
		t.Errorf("window = %v", rl.window)
	}
	if rl.prefix != "rl" {
		t.Errorf("prefix = %q", rl.prefix)
	}
}
