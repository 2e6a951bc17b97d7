package kernel

import "github.com/coreflow-os/coreflow/equeue"

// Queue is a blocking mailbox built on top of equeue's ring buffer:
// Push blocks a producer thread when the buffer is full, Pop blocks a
// consumer thread when it is empty, and either side is released the
// instant the condition clears. All access happens with the kernel's
// critical section held, which is exactly the "single goroutine touches
// the buffer at a time" discipline equeue.Queue's SPSC contract assumes
// — the kernel lock is standing in for equeue's single-producer/
// single-consumer goroutine requirement on behalf of however many
// threads actually call Push/Pop.
type Queue struct {
	k    *Kernel
	ring *equeue.Queue[any]

	pushWaiters []ThreadID
	popWaiters  []ThreadID
}

// NewQueue constructs a blocking queue of the given capacity.
func (k *Kernel) NewQueue(capacity int) *Queue {
	return &Queue{k: k, ring: equeue.New[any](capacity)}
}

// Push enqueues v, blocking the calling thread for up to timeoutMs
// milliseconds (0 waits forever) if the queue is currently full.
func (q *Queue) Push(v any, timeoutMs uint32) (Result, error) {
	tid := q.k.CurrentID()

	q.k.hal.CriticalEnter()
	if q.ring.Push(v) {
		q.wakeOnePopWaiterLocked()
		q.k.hal.CriticalLeave()
		return ResultOK, nil
	}

	self := q.k.threads[tid]
	q.pushWaiters = append(q.pushWaiters, tid)
	self.queueWaitingOn = q
	self.state = StateBlockedQueue
	if timeoutMs != 0 {
		self.wakeupAtMs = q.k.hal.Millis() + int64(timeoutMs)
	}
	q.k.switchAwayLocked(tid)

	q.k.hal.CriticalEnter()
	result := self.result
	self.queueWaitingOn = nil
	if result == ResultOK {
		q.ring.Push(v)
		q.wakeOnePopWaiterLocked()
	}
	q.k.hal.CriticalLeave()
	if result != ResultOK {
		return result, newError("Push", KindTimeout, "timed out waiting for queue space")
	}
	return ResultOK, nil
}

// Pop dequeues the oldest element, blocking for up to timeoutMs
// milliseconds (0 waits forever) if the queue is currently empty.
func (q *Queue) Pop(timeoutMs uint32) (v any, res Result, err error) {
	tid := q.k.CurrentID()

	q.k.hal.CriticalEnter()
	if val, ok := q.ring.Pop(); ok {
		q.wakeOnePushWaiterLocked()
		q.k.hal.CriticalLeave()
		return val, ResultOK, nil
	}

	self := q.k.threads[tid]
	q.popWaiters = append(q.popWaiters, tid)
	self.queueWaitingOn = q
	self.state = StateBlockedQueue
	if timeoutMs != 0 {
		self.wakeupAtMs = q.k.hal.Millis() + int64(timeoutMs)
	}
	q.k.switchAwayLocked(tid)

	q.k.hal.CriticalEnter()
	result := self.result
	self.queueWaitingOn = nil
	if result == ResultOK {
		v, _ = q.ring.Pop()
		q.wakeOnePushWaiterLocked()
	}
	q.k.hal.CriticalLeave()
	if result != ResultOK {
		return nil, result, newError("Pop", KindTimeout, "timed out waiting for queue data")
	}
	return v, ResultOK, nil
}

func (q *Queue) wakeOnePopWaiterLocked() {
	if len(q.popWaiters) == 0 {
		return
	}
	tid := q.popWaiters[0]
	q.popWaiters = q.popWaiters[1:]
	t := q.k.threads[tid]
	t.state = StateRunning
	t.result = ResultOK
}

func (q *Queue) wakeOnePushWaiterLocked() {
	if len(q.pushWaiters) == 0 {
		return
	}
	tid := q.pushWaiters[0]
	q.pushWaiters = q.pushWaiters[1:]
	t := q.k.threads[tid]
	t.state = StateRunning
	t.result = ResultOK
}

// cancelWait removes tid from whichever waiter list it is on.
func (q *Queue) cancelWait(tid ThreadID) {
	for i, w := range q.pushWaiters {
		if w == tid {
			q.pushWaiters = append(q.pushWaiters[:i], q.pushWaiters[i+1:]...)
			return
		}
	}
	for i, w := range q.popWaiters {
		if w == tid {
			q.popWaiters = append(q.popWaiters[:i], q.popWaiters[i+1:]...)
			return
		}
	}
}
