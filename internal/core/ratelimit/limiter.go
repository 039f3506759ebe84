package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// DefaultMinuteLimit は1分ウィンドウのデフォルト上限
const DefaultMinuteLimit = 10

// DefaultHourLimit は1時間ウィンドウのデフォルト上限
const DefaultHourLimit = 100

// Config はLimiterの設定
type Config struct {
	// MinuteLimit は1分ウィンドウの上限（0以下はデフォルト値）
	MinuteLimit int

	// HourLimit は1時間ウィンドウの上限（0以下はデフォルト値）
	HourLimit int

	// BypassIdentifiers は両ウィンドウを完全に免除する識別子
	// （管理・サポートロール向けのケーパビリティ）
	BypassIdentifiers []string
}

// Decision はレート制限の判定結果を表します
type Decision struct {
	// Allowed はリクエストが許可されたかどうか
	Allowed bool

	// Bypassed は免除識別子により両ウィンドウをスキップしたかどうか
	Bypassed bool

	// Scope は拒否されたウィンドウの種別（拒否時のみ）
	Scope Scope

	// RetryAfter は再試行まで待つべき時間（拒否時のみ）
	RetryAfter time.Duration

	// Limit / Remaining / Reset はレスポンスヘッダ用の値
	// 最も残量の少ないウィンドウを反映する
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter は生成エンドポイントを保護するデュアルウィンドウ型の流入制御
//
// 1分ウィンドウと1時間ウィンドウの2つの独立したカウンタを検査し、
// どちらかが枯渇していればリクエストを拒否する。両方が枯渇している場合は
// より長い待ち時間を意味する1時間スコープの拒否を優先して返す。
type Limiter struct {
	store  Store
	cfg    Config
	bypass map[string]struct{}

	// now はテストで差し替え可能な現在時刻関数
	now func() time.Time
}

// New は新しいLimiterを作成する
func New(store Store, cfg Config) *Limiter {
	if cfg.MinuteLimit <= 0 {
		cfg.MinuteLimit = DefaultMinuteLimit
	}
	if cfg.HourLimit <= 0 {
		cfg.HourLimit = DefaultHourLimit
	}

	bypass := make(map[string]struct{}, len(cfg.BypassIdentifiers))
	for _, id := range cfg.BypassIdentifiers {
		bypass[id] = struct{}{}
	}

	return &Limiter{
		store:  store,
		cfg:    cfg,
		bypass: bypass,
		now:    time.Now,
	}
}

// Admit は識別子のリクエストを許可するか判定する
//
// 免除識別子の判定はウィンドウを参照する前に行われ、免除された
// リクエストはどちらのカウンタにも計上されない。拒否されたリクエストも
// カウンタには計上されない。
func (l *Limiter) Admit(ctx context.Context, identifier string) (Decision, error) {
	if _, ok := l.bypass[identifier]; ok {
		return Decision{Allowed: true, Bypassed: true}, nil
	}

	now := l.now()
	limits := Limits{MinuteLimit: l.cfg.MinuteLimit, HourLimit: l.cfg.HourLimit}

	result, err := l.store.Take(ctx, identifier, now, limits)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit store take failed: %w", err)
	}

	minuteReset := result.MinuteStart.Add(windowDuration(ScopeMinute))
	hourReset := result.HourStart.Add(windowDuration(ScopeHour))

	if !result.Admitted {
		// 1時間スコープの拒否を優先する（より長い待ち時間を意味するため）
		scope := ScopeMinute
		reset := minuteReset
		limit := limits.MinuteLimit
		if result.HourCount >= limits.HourLimit {
			scope = ScopeHour
			reset = hourReset
			limit = limits.HourLimit
		}

		return Decision{
			Allowed:    false,
			Scope:      scope,
			RetryAfter: reset.Sub(now),
			Limit:      limit,
			Remaining:  0,
			Reset:      reset,
		}, nil
	}

	// ヘッダには最も残量の少ないウィンドウを反映する
	minuteRemaining := limits.MinuteLimit - result.MinuteCount
	hourRemaining := limits.HourLimit - result.HourCount

	decision := Decision{
		Allowed:   true,
		Limit:     limits.MinuteLimit,
		Remaining: minuteRemaining,
		Reset:     minuteReset,
	}
	if hourRemaining < minuteRemaining {
		decision.Limit = limits.HourLimit
		decision.Remaining = hourRemaining
		decision.Reset = hourReset
	}

	return decision, nil
}
