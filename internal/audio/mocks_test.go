package audio

import (
	"errors"
	"sync"
)

// mockSink 模拟 PCMSink，记录写入的样本
type mockSink struct {
	mu          sync.Mutex
	cfg         SinkConfig
	written     []int16
	writeSizes  []int
	playCount   int
	stopCount   int
	closeCount  int
	playErr     error
	writeErr    error
	failAfter   int           // >0 时第 failAfter 次写入返回 writeErr
	gate        chan struct{} // 非 nil 时每次写入前等待
	stopped     chan struct{}
	stoppedOnce sync.Once
}

func newMockSink() *mockSink {
	return &mockSink{stopped: make(chan struct{})}
}

func (s *mockSink) Write(samples []int16) (int, error) {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-s.stopped:
			return 0, errors.New("sink stopped")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.writeSizes = append(s.writeSizes, len(samples))
	if s.writeErr != nil && (s.failAfter == 0 || len(s.writeSizes) >= s.failAfter) {
		return 0, s.writeErr
	}
	s.written = append(s.written, samples...)
	return len(samples) * BytesPerSample, nil
}

func (s *mockSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playCount++
	return s.playErr
}

func (s *mockSink) Stop() error {
	s.mu.Lock()
	s.stopCount++
	s.mu.Unlock()
	s.stoppedOnce.Do(func() { close(s.stopped) })
	return nil
}

func (s *mockSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCount++
	return nil
}

func (s *mockSink) getWritten() []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int16, len(s.written))
	copy(out, s.written)
	return out
}

func (s *mockSink) getWriteSizes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.writeSizes...)
}

func (s *mockSink) getPlayCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playCount
}

func (s *mockSink) getCloseCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCount
}

// mockOpener 返回预先创建的 mockSink 并记录配置
type mockOpener struct {
	mu      sync.Mutex
	sink    *mockSink
	lastCfg SinkConfig
	openErr error
}

func newMockOpener(sink *mockSink) *mockOpener {
	return &mockOpener{sink: sink}
}

func (o *mockOpener) Open(cfg SinkConfig) (PCMSink, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	o.lastCfg = cfg
	o.sink.cfg = cfg
	return o.sink, nil
}

func (o *mockOpener) getLastConfig() SinkConfig {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastCfg
}
