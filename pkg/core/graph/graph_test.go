package graph

import (
	"errors"
	"testing"
	"time"

	"github.com/LENAX/email-scheduler/pkg/core/email"
)

func makeEmails(specs map[string][]string) []*email.Email {
	now := time.Now()
	emails := make([]*email.Email, 0, len(specs))
	// 固定顺序便于断言
	order := []string{"A", "B", "C", "D", "E"}
	seq := 0
	for _, id := range order {
		deps, ok := specs[id]
		if !ok {
			continue
		}
		emails = append(emails, email.FromExternal(email.In{
			EmailID:      id,
			Deadline:     float64(seq + 1),
			Dependencies: deps,
		}, now, seq))
		seq++
	}
	return emails
}

// TestBuild_DuplicateID 测试重复ID被拒绝
func TestBuild_DuplicateID(t *testing.T) {
	now := time.Now()
	emails := []*email.Email{
		email.FromExternal(email.In{EmailID: "A"}, now, 0),
		email.FromExternal(email.In{EmailID: "A"}, now, 1),
	}

	_, err := Build(emails)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("期望ValidationError，实际为%v", err)
	}
	if verr.Reason != "duplicate_id" {
		t.Errorf("期望原因为duplicate_id，实际为%s", verr.Reason)
	}
}

// TestBuild_UnknownDependency 测试未知依赖引用被拒绝
func TestBuild_UnknownDependency(t *testing.T) {
	emails := makeEmails(map[string][]string{
		"A": {"missing"},
	})

	_, err := Build(emails)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("期望ValidationError，实际为%v", err)
	}
	if verr.Reason != "unknown_dependency" {
		t.Errorf("期望原因为unknown_dependency，实际为%s", verr.Reason)
	}
}

// TestBuild_SelfCycle 测试自依赖被拒绝
func TestBuild_SelfCycle(t *testing.T) {
	emails := makeEmails(map[string][]string{
		"A": {"A"},
	})

	_, err := Build(emails)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("期望ValidationError，实际为%v", err)
	}
	if verr.Reason != "cycle" {
		t.Errorf("期望原因为cycle，实际为%s", verr.Reason)
	}
}

// TestBuild_MutualCycle 测试相互依赖（A→B→A）被拒绝
func TestBuild_MutualCycle(t *testing.T) {
	emails := makeEmails(map[string][]string{
		"A": {"B"},
		"B": {"A"},
	})

	_, err := Build(emails)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("期望ValidationError，实际为%v", err)
	}
	if verr.Reason != "cycle" {
		t.Errorf("期望原因为cycle，实际为%s", verr.Reason)
	}
}

// TestBuild_Roots 测试初始入度为0的节点按输入顺序返回
func TestBuild_Roots(t *testing.T) {
	emails := makeEmails(map[string][]string{
		"A": {},
		"B": {"A"},
		"C": {},
	})

	g, err := Build(emails)
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}

	roots := g.Roots()
	if len(roots) != 2 || roots[0].EmailID != "A" || roots[1].EmailID != "C" {
		ids := make([]string, 0, len(roots))
		for _, r := range roots {
			ids = append(ids, r.EmailID)
		}
		t.Errorf("期望根节点为[A C]，实际为%v", ids)
	}
}

// TestMarkDone_Chain 测试链式依赖逐级解锁
func TestMarkDone_Chain(t *testing.T) {
	emails := makeEmails(map[string][]string{
		"A": {},
		"B": {"A"},
		"C": {"B"},
	})

	g, err := Build(emails)
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}

	unblocked := g.MarkDone("A")
	if len(unblocked) != 1 || unblocked[0].EmailID != "B" {
		t.Fatalf("期望A完成后解锁[B]，实际为%v", unblocked)
	}

	unblocked = g.MarkDone("B")
	if len(unblocked) != 1 || unblocked[0].EmailID != "C" {
		t.Fatalf("期望B完成后解锁[C]，实际为%v", unblocked)
	}

	if unblocked := g.MarkDone("C"); len(unblocked) != 0 {
		t.Errorf("期望C完成后无解锁，实际为%v", unblocked)
	}
}

// TestMarkDone_Diamond 测试菱形依赖：D同时依赖B和C，二者都完成后才解锁
func TestMarkDone_Diamond(t *testing.T) {
	emails := makeEmails(map[string][]string{
		"A": {},
		"B": {"A"},
		"C": {"A"},
		"D": {"B", "C"},
	})

	g, err := Build(emails)
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}

	unblocked := g.MarkDone("A")
	if len(unblocked) != 2 {
		t.Fatalf("期望A完成后解锁[B C]，实际解锁%d个", len(unblocked))
	}

	if unblocked := g.MarkDone("B"); len(unblocked) != 0 {
		t.Fatalf("期望仅B完成时D不解锁，实际为%v", unblocked)
	}

	unblocked = g.MarkDone("C")
	if len(unblocked) != 1 || unblocked[0].EmailID != "D" {
		t.Fatalf("期望B、C都完成后解锁[D]，实际为%v", unblocked)
	}
}

// TestMarkDone_ReleaseOnce 测试重复标记完成不会二次释放下游
func TestMarkDone_ReleaseOnce(t *testing.T) {
	emails := makeEmails(map[string][]string{
		"A": {},
		"B": {"A"},
	})

	g, err := Build(emails)
	if err != nil {
		t.Fatalf("构建失败: %v", err)
	}

	if unblocked := g.MarkDone("A"); len(unblocked) != 1 {
		t.Fatalf("期望首次标记解锁1个，实际%d个", len(unblocked))
	}
	if unblocked := g.MarkDone("A"); len(unblocked) != 0 {
		t.Errorf("期望重复标记不再解锁，实际为%v", unblocked)
	}
}
