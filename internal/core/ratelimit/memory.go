package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	// sweepInterval は遊休エントリ掃除の最短間隔
	sweepInterval = 10 * time.Minute

	// maxIdle はエントリを破棄するまでの遊休時間
	maxIdle = 2 * time.Hour
)

// MemoryStore はインメモリのウィンドウカウンタストア
// 単一インスタンス運用向け。識別子は初回リクエスト時に遅延作成され、
// 長時間アクセスのないエントリは破棄される
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]*windowEntry
	lastSweep time.Time
}

type windowEntry struct {
	minuteStart time.Time
	minuteCount int
	hourStart   time.Time
	hourCount   int
	lastSeen    time.Time
}

// NewMemoryStore は新しいMemoryStoreを作成する
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*windowEntry),
	}
}

// Take はStoreインターフェースを実装する
func (s *MemoryStore) Take(_ context.Context, identifier string, now time.Time, limits Limits) (TakeResult, error) {
	minuteStart := now.Truncate(time.Minute)
	hourStart := now.Truncate(time.Hour)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maybeSweep(now)

	entry, ok := s.entries[identifier]
	if !ok {
		entry = &windowEntry{}
		s.entries[identifier] = entry
	}
	entry.lastSeen = now

	// ウィンドウをまたいだらカウンタをリセットする
	if !entry.minuteStart.Equal(minuteStart) {
		entry.minuteStart = minuteStart
		entry.minuteCount = 0
	}
	if !entry.hourStart.Equal(hourStart) {
		entry.hourStart = hourStart
		entry.hourCount = 0
	}

	result := TakeResult{
		MinuteStart: minuteStart,
		HourStart:   hourStart,
	}

	if entry.minuteCount >= limits.MinuteLimit || entry.hourCount >= limits.HourLimit {
		result.MinuteCount = entry.minuteCount
		result.HourCount = entry.hourCount
		return result, nil
	}

	entry.minuteCount++
	entry.hourCount++

	result.Admitted = true
	result.MinuteCount = entry.minuteCount
	result.HourCount = entry.hourCount
	return result, nil
}

// maybeSweep は遊休エントリを破棄する（ロック保持前提）
func (s *MemoryStore) maybeSweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now

	for identifier, entry := range s.entries {
		if now.Sub(entry.lastSeen) > maxIdle {
			delete(s.entries, identifier)
		}
	}
}

// Len は保持中の識別子数を返す（テスト・監視用）
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// インターフェース実装の確認
var _ Store = (*MemoryStore)(nil)
