package mxprint

import (
	"container/heap"
	"time"
)

// DefaultResponseTimeout is how long the scheduler waits for a printer reply
// before the timeout escalation starts.
const DefaultResponseTimeout = 2 * time.Second

// cmdHeap is the delayed-command priority ring, ordered by fire time with
// creation time as the tie break. One timer wakes at the earliest fire time.
type cmdHeap []*CommandContext

func (h cmdHeap) Len() int { return len(h) }
func (h cmdHeap) Less(i, j int) bool {
	if !h[i].fireAt.Equal(h[j].fireAt) {
		return h[i].fireAt.Before(h[j].fireAt)
	}
	return h[i].Command.CreateTime.Before(h[j].Command.CreateTime)
}
func (h cmdHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *cmdHeap) Push(x any) { *h = append(*h, x.(*CommandContext)) }
func (h *cmdHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// cmdScheduler serializes commands onto the half-duplex link: at most one
// command is in flight; the next dispatches when the current one resolves.
// All methods run on the manager's dispatch goroutine.
type cmdScheduler struct {
	fifo    []*CommandContext
	delayed cmdHeap

	// awaiting holds dispatched contexts that have not resolved. Normally
	// one deep; replies match by opcode, oldest first.
	awaiting []*CommandContext

	respTimers map[*CommandContext]*time.Timer
	delayTimer *time.Timer

	responseTimeout time.Duration

	send func([]byte) error
	post func(func())
}

func newCmdScheduler(send func([]byte) error, post func(func())) *cmdScheduler {
	return &cmdScheduler{
		respTimers:      make(map[*CommandContext]*time.Timer),
		responseTimeout: DefaultResponseTimeout,
		send:            send,
		post:            post,
	}
}

func (s *cmdScheduler) empty() bool {
	return len(s.fifo) == 0 && len(s.delayed) == 0 && len(s.awaiting) == 0
}

// enqueue accepts a command context. Immediate commands join the FIFO;
// delayed ones go to the priority ring.
func (s *cmdScheduler) enqueue(ctx *CommandContext) {
	if ctx.Command.DelayTime > 0 {
		ctx.fireAt = time.Now().Add(ctx.Command.DelayTime)
		heap.Push(&s.delayed, ctx)
		s.armDelayTimer()
	} else {
		s.fifo = append(s.fifo, ctx)
	}
	s.pump()
}

// armDelayTimer points the single delay timer at the earliest fire time.
func (s *cmdScheduler) armDelayTimer() {
	if s.delayTimer != nil {
		s.delayTimer.Stop()
		s.delayTimer = nil
	}
	if len(s.delayed) == 0 {
		return
	}
	d := time.Until(s.delayed[0].fireAt)
	if d < 0 {
		d = 0
	}
	s.delayTimer = time.AfterFunc(d, func() {
		s.post(func() {
			s.delayTimer = nil
			s.pump()
			s.armDelayTimer()
		})
	})
}

// next pops the next ready context: the FIFO front, or any delayed entry
// whose fire time has elapsed, whichever was created first.
func (s *cmdScheduler) next() *CommandContext {
	var delayedReady *CommandContext
	if len(s.delayed) > 0 && !s.delayed[0].fireAt.After(time.Now()) {
		delayedReady = s.delayed[0]
	}
	if len(s.fifo) > 0 {
		front := s.fifo[0]
		if delayedReady == nil || front.Command.CreateTime.Before(delayedReady.Command.CreateTime) {
			s.fifo = s.fifo[1:]
			return front
		}
	}
	if delayedReady != nil {
		heap.Pop(&s.delayed)
		return delayedReady
	}
	return nil
}

// pump dispatches the next ready command if the in-flight slot is free.
func (s *cmdScheduler) pump() {
	if len(s.awaiting) > 0 {
		return
	}
	ctx := s.next()
	if ctx == nil {
		return
	}
	if err := s.send(ctx.Command.Data); err != nil {
		if cb := ctx.Callback; cb != nil && cb.OnError != nil {
			cb.OnError(ctx.Command, err.Error())
		}
		s.pump()
		return
	}
	s.awaiting = append(s.awaiting, ctx)
	s.armResponseTimer(ctx)
}

func (s *cmdScheduler) armResponseTimer(ctx *CommandContext) {
	s.respTimers[ctx] = time.AfterFunc(s.responseTimeout, func() {
		s.post(func() { s.onResponseTimeout(ctx) })
	})
}

func (s *cmdScheduler) stopResponseTimer(ctx *CommandContext) {
	if t, ok := s.respTimers[ctx]; ok {
		t.Stop()
		delete(s.respTimers, ctx)
	}
}

// onResponseTimeout runs the escalation: unless the command is
// loss-on-timeout, the first miss notifies with delayEfficacy=true and
// re-arms once; the second miss (or a loss-on-timeout first miss) is
// terminal.
func (s *cmdScheduler) onResponseTimeout(ctx *CommandContext) {
	if _, ok := s.respTimers[ctx]; !ok {
		return // already resolved
	}
	delete(s.respTimers, ctx)
	cb := ctx.Callback
	if !ctx.Command.IsLossOnTimeout && !ctx.rearmed {
		ctx.rearmed = true
		if cb != nil && cb.OnTimeout != nil {
			cb.OnTimeout(ctx.Command, true)
		}
		s.armResponseTimer(ctx)
		return
	}
	s.remove(ctx)
	if cb != nil && cb.OnTimeout != nil {
		cb.OnTimeout(ctx.Command, false)
	}
	s.pump()
}

// handleAck resolves the oldest awaiting context whose opcode matches.
// Returns false when no context claims the reply.
func (s *cmdScheduler) handleAck(f Frame) bool {
	for _, ctx := range s.awaiting {
		if ctx.Command.Opcode != f.Opcode {
			continue
		}
		s.stopResponseTimer(ctx)
		s.remove(ctx)
		if cb := ctx.Callback; cb != nil && cb.OnSuccess != nil {
			cb.OnSuccess(ctx.Command, f)
		}
		s.pump()
		return true
	}
	return false
}

func (s *cmdScheduler) remove(ctx *CommandContext) {
	for i, c := range s.awaiting {
		if c == ctx {
			s.awaiting = append(s.awaiting[:i], s.awaiting[i+1:]...)
			return
		}
	}
}

// cancelAll resolves every pending context with an error and empties the
// queues. Used on disconnect.
func (s *cmdScheduler) cancelAll(errMsg string) {
	if s.delayTimer != nil {
		s.delayTimer.Stop()
		s.delayTimer = nil
	}
	pending := make([]*CommandContext, 0, len(s.awaiting)+len(s.fifo)+len(s.delayed))
	pending = append(pending, s.awaiting...)
	pending = append(pending, s.fifo...)
	pending = append(pending, s.delayed...)
	s.awaiting = nil
	s.fifo = nil
	s.delayed = nil
	for _, ctx := range pending {
		s.stopResponseTimer(ctx)
		if cb := ctx.Callback; cb != nil && cb.OnError != nil {
			cb.OnError(ctx.Command, errMsg)
		}
	}
}

// dataScheduler is the large-payload twin of cmdScheduler: an independent
// FIFO sharing the same link. Completion is delegated to the link write.
type dataScheduler struct {
	fifo []*DataObjContext
	busy bool

	send func([]byte) error
	post func(func())
}

func newDataScheduler(send func([]byte) error, post func(func())) *dataScheduler {
	return &dataScheduler{send: send, post: post}
}

func (s *dataScheduler) enqueue(ctx *DataObjContext) {
	s.fifo = append(s.fifo, ctx)
	s.pump()
}

func (s *dataScheduler) pump() {
	if s.busy || len(s.fifo) == 0 {
		return
	}
	ctx := s.fifo[0]
	s.fifo = s.fifo[1:]
	s.busy = true
	err := s.send(ctx.DataObj.Data)
	s.busy = false
	cb := ctx.Callback
	if err != nil {
		if cb != nil && cb.OnError != nil {
			cb.OnError(ctx.DataObj, err.Error())
		}
	} else if cb != nil && cb.OnSuccess != nil {
		cb.OnSuccess(ctx.DataObj, nil)
	}
	s.pump()
}

func (s *dataScheduler) cancelAll(errMsg string) {
	pending := s.fifo
	s.fifo = nil
	for _, ctx := range pending {
		if cb := ctx.Callback; cb != nil && cb.OnError != nil {
			cb.OnError(ctx.DataObj, errMsg)
		}
	}
}
