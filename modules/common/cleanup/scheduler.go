package cleanup

import (
	"errors"
	"io/fs"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

// Scheduler - 파일 지연 삭제 스케줄러
// Schedule 은 즉시 반환하고, after 가 지난 뒤 한 번 삭제를 시도한다.
type Scheduler interface {
	Schedule(path string, after time.Duration)
}

// DeleteFunc - 실제 삭제 함수 (보통 os.Remove)
type DeleteFunc func(path string) error

// TimerScheduler - clock 기반 in-process 타이머 스케줄러
// 프로세스가 재시작되면 대기 중인 삭제는 사라진다.
type TimerScheduler struct {
	clock  clock.Clock
	remove DeleteFunc

	mu     sync.Mutex
	nextID uint64
	timers map[uint64]*clock.Timer
}

// NewTimerScheduler - 타이머 스케줄러 생성
func NewTimerScheduler(clk clock.Clock, remove DeleteFunc) *TimerScheduler {
	return &TimerScheduler{
		clock:  clk,
		remove: remove,
		timers: make(map[uint64]*clock.Timer),
	}
}

// Schedule - after 이후 path 삭제 예약
func (s *TimerScheduler) Schedule(path string, after time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.timers[id] = s.clock.AfterFunc(after, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()

		removeAndLog(s.remove, path)
	})

	log.Debug().Str("path", path).Dur("after", after).Msg("🕒 [Cleanup] Deletion scheduled")
}

// Pending - 아직 실행되지 않은 삭제 수
func (s *TimerScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop - 대기 중인 타이머 모두 취소 (종료 시)
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// removeAndLog - 삭제 실패는 로그만 남기고 호출자에게 전달하지 않음
func removeAndLog(remove DeleteFunc, path string) {
	err := remove(path)
	switch {
	case err == nil:
		log.Info().Str("path", path).Msg("🧹 [Cleanup] Removed temporary file")
	case errors.Is(err, fs.ErrNotExist):
		log.Debug().Str("path", path).Msg("[Cleanup] File already gone")
	default:
		log.Warn().Err(err).Str("path", path).Msg("⚠️  [Cleanup] Failed to delete temporary file")
	}
}
