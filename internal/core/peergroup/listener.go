package peergroup

import (
	"sync"
)

// StateListener 状态变更监听器
//
// 回调在专用的分发 goroutine 上执行，慢监听器不会阻塞维护周期，
// 但会推迟后续事件的投递。实现需要是可比较的类型（通常为指针），
// 以便 RemoveListener 定位。
type StateListener interface {
	OnStateChanged(state State)
}

type stateEvent struct {
	state     State
	listeners []StateListener
}

// dispatcher 状态事件分发
//
// 队列无界，发布方从不阻塞。每个事件携带发布时刻的监听器快照。
type dispatcher struct {
	mu        sync.Mutex
	listeners []StateListener
	queue     []stateEvent
	closed    bool

	signal chan struct{}
	done   chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) add(l StateListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.listeners {
		if existing == l {
			return
		}
	}
	d.listeners = append(d.listeners, l)
}

func (d *dispatcher) remove(l StateListener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.listeners {
		if existing == l {
			d.listeners = append(d.listeners[:i:i], d.listeners[i+1:]...)
			return
		}
	}
}

func (d *dispatcher) publish(s State) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if len(d.listeners) > 0 {
		snapshot := append([]StateListener(nil), d.listeners...)
		d.queue = append(d.queue, stateEvent{state: s, listeners: snapshot})
	}
	d.mu.Unlock()
	d.wake()
}

func (d *dispatcher) wake() {
	select {
	case d.signal <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for range d.signal {
		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				closed := d.closed
				d.mu.Unlock()
				if closed {
					return
				}
				break
			}
			ev := d.queue[0]
			d.queue = d.queue[1:]
			d.mu.Unlock()

			for _, l := range ev.listeners {
				notify(l, ev.state)
			}
		}
	}
}

// notify 调用单个监听器，panic 被恢复并记录
func notify(l StateListener, s State) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("状态监听器 panic", "state", s, "panic", r)
		}
	}()
	l.OnStateChanged(s)
}

// close 停止接收新事件，已排队的事件投递完毕后返回的 channel 关闭
func (d *dispatcher) close() <-chan struct{} {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wake()
	return d.done
}
