package scenarios

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tengw/gateway"
)

// JoinStats counts the status codes seen by the join rate limit test. Failed
// requests are recorded as status 0 and counted as Other.
type JoinStats struct {
	Total       int
	Success     int
	RateLimited int
	Other       int
	Elapsed     time.Duration
}

// JoinRateLimit fires Settings.JoinRequests bare /join/ requests through a pool of
// Settings.JoinWorkers workers and counts 200, 429 and other responses.
func JoinRateLimit(ctx context.Context, env Env) (JoinStats, error) {
	if err := env.validate(); err != nil {
		return JoinStats{}, err
	}
	logger := env.log()
	s := env.Settings

	logger.Info("Join rate limit test",
		zap.String("url", env.Network.URL),
		zap.Int("requests", s.JoinRequests),
		zap.Int("workers", s.JoinWorkers),
	)

	httpClient := loadClient(env.HTTPClient, s.JoinWorkers)
	defer httpClient.CloseIdleConnections()

	codes := make([]int, s.JoinRequests)
	start := time.Now()

	// individual failures never cancel the batch, so the group has no shared context
	var g errgroup.Group
	g.SetLimit(s.JoinWorkers)
	for i := range codes {
		g.Go(func() error {
			reqCtx, cancel := context.WithTimeout(ctx, s.JoinTimeout)
			defer cancel()

			code, err := gateway.JoinStatus(reqCtx, httpClient, env.Network.URL)
			if err != nil {
				logger.Error("Request failed", zap.Error(err))
				code = 0
			}
			codes[i] = code
			return nil
		})
	}
	g.Wait()

	stats := countStatuses(codes)
	stats.Elapsed = time.Since(start)

	logger.Info("Join rate limit test completed",
		zap.Duration("elapsed", stats.Elapsed),
		zap.Int("success", stats.Success),
		zap.Int("rate_limited", stats.RateLimited),
		zap.Int("other", stats.Other),
	)
	return stats, ctx.Err()
}

// loadClient returns a client whose transport keeps one idle connection per worker.
// The timeout of base, when given, is kept.
func loadClient(base *http.Client, workers int) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = workers
	transport.MaxIdleConnsPerHost = workers

	client := &http.Client{Transport: transport}
	if base != nil {
		client.Timeout = base.Timeout
	}
	return client
}

func countStatuses(codes []int) JoinStats {
	stats := JoinStats{Total: len(codes)}
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			stats.Success++
		case http.StatusTooManyRequests:
			stats.RateLimited++
		default:
			stats.Other++
		}
	}
	return stats
}
