package backend

import (
	"errors"
	"sync"

	"github.com/liuscraft/frequency/internal/audio"
)

var ErrSinkStopped = errors.New("sink stopped")

// Memory 把写入的样本保存在内存里，不访问音频设备
type Memory struct {
	mu    sync.Mutex
	sinks []*MemorySink
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Name() string { return NameMemory }

func (m *Memory) Open(cfg audio.SinkConfig) (audio.PCMSink, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	sink := &MemorySink{cfg: cfg}
	m.mu.Lock()
	m.sinks = append(m.sinks, sink)
	m.mu.Unlock()
	return sink, nil
}

// Sinks 返回已打开的所有 sink
func (m *Memory) Sinks() []*MemorySink {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*MemorySink(nil), m.sinks...)
}

func (m *Memory) Close() error {
	m.mu.Lock()
	sinks := m.sinks
	m.sinks = nil
	m.mu.Unlock()
	for _, s := range sinks {
		_ = s.Close()
	}
	return nil
}

// MemorySink 记录写入的样本
type MemorySink struct {
	cfg audio.SinkConfig

	mu      sync.Mutex
	samples []int16
	playing bool
	stopped bool
	closed  bool
}

func (s *MemorySink) Config() audio.SinkConfig { return s.cfg }

func (s *MemorySink) Write(samples []int16) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.stopped {
		return 0, ErrSinkStopped
	}
	s.samples = append(s.samples, samples...)
	return len(samples) * audio.BytesPerSample, nil
}

func (s *MemorySink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSinkStopped
	}
	s.playing = true
	s.stopped = false
	return nil
}

func (s *MemorySink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
	s.stopped = true
	return nil
}

func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.playing = false
	return nil
}

// Samples 返回已写入样本的副本
func (s *MemorySink) Samples() []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int16(nil), s.samples...)
}

func (s *MemorySink) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *MemorySink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
