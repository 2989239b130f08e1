package scoring

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	platformredis "eqboard/internal/platform/redis"
	"eqboard/internal/submission"
)

const advisoryCacheTTL = 24 * time.Hour

// CachedJudge memoizes advisory results in Redis. The judge is pinned to
// zero-variance output, so identical content always yields the identical
// verdict and caching by content hash is safe.
type CachedJudge struct {
	inner  Judge
	redis  *platformredis.Client
	logger *slog.Logger
}

func NewCachedJudge(inner Judge, redis *platformredis.Client, logger *slog.Logger) *CachedJudge {
	return &CachedJudge{inner: inner, redis: redis, logger: logger}
}

func (c *CachedJudge) Score(ctx context.Context, sub submission.Submission) (*AdvisoryResult, error) {
	key := advisoryCacheKey(sub)

	if cached, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var result AdvisoryResult
		if err := json.Unmarshal(cached, &result); err == nil {
			return &result, nil
		}
	}

	result, err := c.inner.Score(ctx, sub)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(result); err == nil {
		if err := c.redis.Set(ctx, key, payload, advisoryCacheTTL).Err(); err != nil {
			c.logger.WarnContext(ctx, "cache advisory result", "error", err)
		}
	}
	return result, nil
}

// advisoryCacheKey hashes the judged content. The submission id stays out of
// the key so a resubmitted identical record reuses the verdict.
func advisoryCacheKey(sub submission.Submission) string {
	content := strings.Join([]string{
		sub.Name,
		sub.Equation,
		sub.Description,
		string(sub.Units),
		string(sub.Theory),
		strings.Join(sub.Assumptions, "\x1f"),
		strings.Join(sub.Evidence, "\x1f"),
		fmt.Sprintf("%v/%v", sub.Animation.Present(), sub.Image.Present()),
	}, "\x1e")
	sum := sha256.Sum256([]byte(content))
	return "eqboard:advisory:" + hex.EncodeToString(sum[:])
}
