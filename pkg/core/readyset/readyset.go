// Package readyset 提供按截止时间排序的并发安全就绪集
package readyset

import (
	"container/heap"
	"context"
	"sync"

	"github.com/LENAX/email-scheduler/pkg/core/email"
)

// deadlineHeap 按(deadline, 入队序号)排序的最小堆
// 序号保证同deadline时的稳定顺序
type deadlineHeap []*email.Email

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool {
	if h[i].Deadline.Equal(h[j].Deadline) {
		return h[i].Seq < h[j].Seq
	}
	return h[i].Deadline.Before(h[j].Deadline)
}

func (h deadlineHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *deadlineHeap) Push(x interface{}) {
	*h = append(*h, x.(*email.Email))
}

func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// ReadySet 就绪集（对外导出）
// 区分"暂时为空但还有任务在途"和"彻底排空"两种空状态：
// 前者Pop阻塞等待，后者Pop返回false让worker退出
// 调用方不直接接触内部堆，所有访问经过单一互斥锁
type ReadySet struct {
	mu          sync.Mutex
	cond        *sync.Cond
	heap        deadlineHeap
	outstanding int // 尚未到达终态(DONE/FAILED)的任务数
	aborted     bool
}

// New 创建就绪集
// total: 本次run的任务总数，用于排空判定
func New(total int) *ReadySet {
	rs := &ReadySet{
		heap:        make(deadlineHeap, 0, total),
		outstanding: total,
	}
	rs.cond = sync.NewCond(&rs.mu)
	return rs
}

// Push 将就绪任务加入集合
func (rs *ReadySet) Push(e *email.Email) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	e.SetStatus(email.StatusReady)
	heap.Push(&rs.heap, e)
	rs.cond.Signal()
}

// Pop 弹出deadline最早的就绪任务（对外导出）
// 集合暂时为空但仍有任务在途时阻塞；彻底排空或中止时返回(nil, false)
// 并发调用安全：同一任务实例至多被一个worker取得
func (rs *ReadySet) Pop(ctx context.Context) (*email.Email, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	for {
		if rs.aborted || ctx.Err() != nil {
			return nil, false
		}
		if len(rs.heap) > 0 {
			e := heap.Pop(&rs.heap).(*email.Email)
			return e, true
		}
		if rs.outstanding == 0 {
			return nil, false
		}
		rs.cond.Wait()
	}
}

// TaskFinished 报告一个任务到达终态
// 计数归零时唤醒所有阻塞的worker使其退出
func (rs *ReadySet) TaskFinished() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.outstanding--
	if rs.outstanding <= 0 {
		rs.cond.Broadcast()
	}
}

// Drained 判断是否已彻底排空（无任何Pending/Ready/InFlight任务）
func (rs *ReadySet) Drained() bool {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.outstanding == 0 && len(rs.heap) == 0
}

// Abort 中止就绪集，唤醒所有阻塞的worker
// run失败时由调度器调用，阻止新任务被取出
func (rs *ReadySet) Abort() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.aborted = true
	rs.cond.Broadcast()
}

// Len 返回当前就绪任务数
func (rs *ReadySet) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.heap)
}
