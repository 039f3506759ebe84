package ratelimit

import (
	"context"
	"time"
)

// Scope はレート制限ウィンドウの種別を表します
type Scope string

const (
	ScopeMinute Scope = "minute"
	ScopeHour   Scope = "hour"
)

// windowDuration はスコープのウィンドウ長を返す
func windowDuration(scope Scope) time.Duration {
	if scope == ScopeHour {
		return time.Hour
	}
	return time.Minute
}

// Limits は両ウィンドウの上限値
type Limits struct {
	// MinuteLimit は1分ウィンドウの上限リクエスト数
	MinuteLimit int

	// HourLimit は1時間ウィンドウの上限リクエスト数
	HourLimit int
}

// TakeResult はStore.Takeの結果を表します
// カウント値は、許可時は加算後、拒否時は現在値を返す
type TakeResult struct {
	Admitted    bool
	MinuteCount int
	HourCount   int
	MinuteStart time.Time
	HourStart   time.Time
}

// Store は識別子ごとのウィンドウカウンタを保持するストア
//
// 固定長バケット方式: ウィンドウは壁時計のウィンドウ開始時刻をキーとし、
// スライディングログは使わない。バーストの多少の不正確さと引き換えに、
// O(1)のメモリと更新コストを得る。
//
// 単一インスタンス運用ではインメモリ実装、水平スケール時は外部ストア実装を
// 注入して差し替える。
type Store interface {
	// Take は識別子の両ウィンドウを検査し、両方に余裕がある場合のみ
	// 原子的に両カウンタを加算する。拒否されたリクエストはカウントしない。
	// 同一識別子に対する検査と加算は相互排他のもとで行われること。
	Take(ctx context.Context, identifier string, now time.Time, limits Limits) (TakeResult, error)
}
