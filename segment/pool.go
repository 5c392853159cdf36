package segment

import (
	"sync"

	"github.com/ceyewan/leaf/clog"
)

// workerPool 固定数量的 worker 消费有界队列
//
// Submit 从不阻塞：队列满或已停止时返回 false，由调用方回退。
type workerPool struct {
	tasks  chan func()
	logger clog.Logger
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func newWorkerPool(workers, queueSize int, logger clog.Logger) *workerPool {
	p := &workerPool{
		tasks:  make(chan func(), queueSize),
		logger: logger,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *workerPool) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

func (p *workerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("refill task panicked", clog.Any("panic", r))
		}
	}()
	task()
}

func (p *workerPool) Submit(task func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Stop 拒绝新任务，执行完队列中剩余任务后返回
func (p *workerPool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()
	p.wg.Wait()
}
