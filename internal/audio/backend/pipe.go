package backend

import (
	"io"
	"sync"
)

// bufferedPipe 线程安全的字节管道，缓冲超过 maxLen 时 Write 阻塞
type bufferedPipe struct {
	buf    []byte
	mu     sync.Mutex
	cond   *sync.Cond
	closed bool
	eof    bool
	maxLen int
}

func newBufferedPipe(maxLen int) *bufferedPipe {
	if maxLen <= 0 {
		maxLen = 4096
	}
	bp := &bufferedPipe{
		buf:    make([]byte, 0, maxLen),
		maxLen: maxLen,
	}
	bp.cond = sync.NewCond(&bp.mu)
	return bp
}

func (bp *bufferedPipe) Write(p []byte) (int, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	written := 0
	for written < len(p) {
		for len(bp.buf) >= bp.maxLen && !bp.closed {
			bp.cond.Wait()
		}
		if bp.closed || bp.eof {
			return written, io.ErrClosedPipe
		}
		n := min(bp.maxLen-len(bp.buf), len(p)-written)
		bp.buf = append(bp.buf, p[written:written+n]...)
		written += n
		bp.cond.Broadcast()
	}
	return written, nil
}

func (bp *bufferedPipe) Read(p []byte) (int, error) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	for len(bp.buf) == 0 && !bp.closed && !bp.eof {
		bp.cond.Wait()
	}

	if len(bp.buf) == 0 {
		return 0, io.EOF
	}

	n := copy(p, bp.buf)
	bp.buf = bp.buf[n:]
	bp.cond.Broadcast()
	return n, nil
}

// CloseWrite 不再接受写入，读端读完剩余数据后得到 io.EOF
func (bp *bufferedPipe) CloseWrite() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.eof = true
	bp.cond.Broadcast()
}

// Close 丢弃缓冲并唤醒所有等待方
func (bp *bufferedPipe) Close() error {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.closed = true
	bp.buf = nil
	bp.cond.Broadcast()
	return nil
}

func (bp *bufferedPipe) Buffered() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.buf)
}
