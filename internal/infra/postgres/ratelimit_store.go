package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jinford/codedoc/internal/core/ratelimit"
)

// RateLimitStore はPostgreSQLを使用したウィンドウカウンタストア
// 複数インスタンスで同一の識別子カウンタを共有する水平スケール構成向け
type RateLimitStore struct {
	pool *pgxpool.Pool
}

// NewRateLimitStore は新しいRateLimitStoreを作成する
func NewRateLimitStore(pool *pgxpool.Pool) *RateLimitStore {
	return &RateLimitStore{pool: pool}
}

// Connect は接続プールを作成してRateLimitStoreを構築する
func Connect(ctx context.Context, dsn string) (*RateLimitStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// 接続テスト
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &RateLimitStore{pool: pool}, nil
}

// Close は接続プールを閉じる
func (s *RateLimitStore) Close() {
	s.pool.Close()
}

// EnsureSchema はウィンドウカウンタテーブルを作成する
func (s *RateLimitStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS rate_limit_windows (
    identifier   TEXT        NOT NULL,
    scope        TEXT        NOT NULL,
    window_start TIMESTAMPTZ NOT NULL,
    count        INTEGER     NOT NULL DEFAULT 0,
    PRIMARY KEY (identifier, scope)
)`
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create rate_limit_windows table: %w", err)
	}
	return nil
}

// Take はratelimit.Storeインターフェースを実装する
// 行ロックにより同一識別子に対する検査と加算を相互排他で行う
func (s *RateLimitStore) Take(ctx context.Context, identifier string, now time.Time, limits ratelimit.Limits) (ratelimit.TakeResult, error) {
	minuteStart := now.Truncate(time.Minute)
	hourStart := now.Truncate(time.Hour)

	result := ratelimit.TakeResult{
		MinuteStart: minuteStart,
		HourStart:   hourStart,
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ratelimit.TakeResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	minuteCount, err := upsertWindow(ctx, tx, identifier, string(ratelimit.ScopeMinute), minuteStart)
	if err != nil {
		return ratelimit.TakeResult{}, err
	}
	hourCount, err := upsertWindow(ctx, tx, identifier, string(ratelimit.ScopeHour), hourStart)
	if err != nil {
		return ratelimit.TakeResult{}, err
	}

	result.MinuteCount = minuteCount
	result.HourCount = hourCount

	if minuteCount >= limits.MinuteLimit || hourCount >= limits.HourLimit {
		// 拒否されたリクエストはカウントしない
		if err := tx.Commit(ctx); err != nil {
			return ratelimit.TakeResult{}, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return result, nil
	}

	const increment = `
UPDATE rate_limit_windows SET count = count + 1
WHERE identifier = $1 AND scope = ANY($2)`
	if _, err := tx.Exec(ctx, increment, identifier, []string{string(ratelimit.ScopeMinute), string(ratelimit.ScopeHour)}); err != nil {
		return ratelimit.TakeResult{}, fmt.Errorf("failed to increment windows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return ratelimit.TakeResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	result.Admitted = true
	result.MinuteCount = minuteCount + 1
	result.HourCount = hourCount + 1
	return result, nil
}

// upsertWindow はウィンドウ行を現在のウィンドウ開始時刻に合わせて更新し、
// 行ロックを取得したうえで現在のカウントを返す
// ウィンドウをまたいでいた場合はカウントを0にリセットする
func upsertWindow(ctx context.Context, tx pgx.Tx, identifier, scope string, windowStart time.Time) (int, error) {
	const upsert = `
INSERT INTO rate_limit_windows (identifier, scope, window_start, count)
VALUES ($1, $2, $3, 0)
ON CONFLICT (identifier, scope) DO UPDATE
SET window_start = EXCLUDED.window_start,
    count = CASE WHEN rate_limit_windows.window_start = EXCLUDED.window_start
                 THEN rate_limit_windows.count ELSE 0 END
RETURNING count`

	var count int
	if err := tx.QueryRow(ctx, upsert, identifier, scope, windowStart).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to upsert %s window: %w", scope, err)
	}
	return count, nil
}

// インターフェース実装の確認
var _ ratelimit.Store = (*RateLimitStore)(nil)
