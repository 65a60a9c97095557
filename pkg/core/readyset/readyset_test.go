package readyset

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LENAX/email-scheduler/pkg/core/email"
)

func makeEmail(id string, deadlineOffset time.Duration, seq int) *email.Email {
	return email.FromExternal(email.In{
		EmailID:  id,
		Deadline: deadlineOffset.Seconds(),
	}, time.Now(), seq)
}

// TestPop_DeadlineOrder 测试按deadline升序弹出
func TestPop_DeadlineOrder(t *testing.T) {
	rs := New(3)
	rs.Push(makeEmail("late", 3*time.Second, 0))
	rs.Push(makeEmail("early", 1*time.Second, 1))
	rs.Push(makeEmail("mid", 2*time.Second, 2))

	expected := []string{"early", "mid", "late"}
	for _, id := range expected {
		e, ok := rs.Pop(context.Background())
		if !ok {
			t.Fatal("期望弹出任务，实际已排空")
		}
		if e.EmailID != id {
			t.Errorf("期望弹出%s，实际为%s", id, e.EmailID)
		}
		rs.TaskFinished()
	}
}

// TestPop_TieBreakBySeq 测试同deadline按入队顺序稳定排序
func TestPop_TieBreakBySeq(t *testing.T) {
	fetchStart := time.Now()
	rs := New(3)
	for i, id := range []string{"first", "second", "third"} {
		rs.Push(email.FromExternal(email.In{EmailID: id, Deadline: 5}, fetchStart, i))
	}

	for _, id := range []string{"first", "second", "third"} {
		e, ok := rs.Pop(context.Background())
		if !ok {
			t.Fatal("期望弹出任务，实际已排空")
		}
		if e.EmailID != id {
			t.Errorf("期望弹出%s，实际为%s", id, e.EmailID)
		}
		rs.TaskFinished()
	}
}

// TestPop_BlocksUntilPush 测试暂时为空但有在途任务时Pop阻塞等待
func TestPop_BlocksUntilPush(t *testing.T) {
	rs := New(2)
	rs.Push(makeEmail("A", time.Second, 0))

	e, _ := rs.Pop(context.Background())
	if e.EmailID != "A" {
		t.Fatalf("期望弹出A，实际为%s", e.EmailID)
	}

	// B尚未就绪，Pop应阻塞而非返回排空
	popped := make(chan *email.Email, 1)
	go func() {
		e, ok := rs.Pop(context.Background())
		if ok {
			popped <- e
		}
	}()

	select {
	case <-popped:
		t.Fatal("期望Pop阻塞，实际立即返回")
	case <-time.After(50 * time.Millisecond):
	}

	rs.Push(makeEmail("B", time.Second, 1))
	rs.TaskFinished() // A完成

	select {
	case e := <-popped:
		if e.EmailID != "B" {
			t.Errorf("期望弹出B，实际为%s", e.EmailID)
		}
	case <-time.After(time.Second):
		t.Fatal("Push后Pop仍未返回")
	}
}

// TestPop_DrainedExit 测试彻底排空后Pop返回false
func TestPop_DrainedExit(t *testing.T) {
	rs := New(1)
	rs.Push(makeEmail("A", time.Second, 0))

	if _, ok := rs.Pop(context.Background()); !ok {
		t.Fatal("期望弹出任务")
	}
	rs.TaskFinished()

	if _, ok := rs.Pop(context.Background()); ok {
		t.Error("期望排空后返回false")
	}
	if !rs.Drained() {
		t.Error("期望Drained为true")
	}
}

// TestPop_ConcurrentUnique 测试并发Pop时每个任务至多被取得一次
func TestPop_ConcurrentUnique(t *testing.T) {
	const total = 100
	rs := New(total)
	for i := 0; i < total; i++ {
		rs.Push(makeEmail(string(rune('a'+i%26))+string(rune('0'+i/26)), time.Duration(i)*time.Millisecond, i))
	}

	var mu sync.Mutex
	seen := make(map[string]int)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				e, ok := rs.Pop(context.Background())
				if !ok {
					return
				}
				mu.Lock()
				seen[e.EmailID]++
				mu.Unlock()
				rs.TaskFinished()
			}
		}()
	}
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("期望取得%d个不同任务，实际为%d", total, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("任务%s被取得%d次", id, count)
		}
	}
}

// TestAbort_WakesBlockedWorkers 测试Abort唤醒所有阻塞的Pop调用
func TestAbort_WakesBlockedWorkers(t *testing.T) {
	rs := New(5)

	done := make(chan bool, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, ok := rs.Pop(context.Background())
			done <- ok
		}()
	}

	time.Sleep(20 * time.Millisecond)
	rs.Abort()

	for i := 0; i < 3; i++ {
		select {
		case ok := <-done:
			if ok {
				t.Error("期望中止后Pop返回false")
			}
		case <-time.After(time.Second):
			t.Fatal("Abort未能唤醒阻塞的Pop")
		}
	}
}
