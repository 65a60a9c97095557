package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/LENAX/email-scheduler/pkg/core/email"
)

// ValidationError 依赖图校验错误（重复ID、未知依赖、循环依赖）
// 校验失败时整个run在任何派发之前终止
type ValidationError struct {
	Reason string // "duplicate_id" | "unknown_dependency" | "cycle"
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("依赖图校验失败(%s): %s", e.Reason, e.Detail)
}

// DependencyGraph 依赖图（对外导出）
// 维护正向依赖映射、反向依赖映射和每个节点的剩余入度
// 入度在构建后只减不增；每个节点入度归零时恰好被返回一次
type DependencyGraph struct {
	mu         sync.Mutex
	deps       map[string]map[string]struct{} // email_id -> 未完成依赖集合
	dependents map[string][]string            // email_id -> 依赖它的下游ID列表
	emails     map[string]*email.Email
	roots      []string // 构建时入度为0的节点（保持输入顺序）
	released   map[string]struct{}
}

// Build 从邮件列表构建依赖图（对外导出）
// 执行三项校验：重复ID、未知依赖引用、循环依赖（Kahn归约）
func Build(emails []*email.Email) (*DependencyGraph, error) {
	g := &DependencyGraph{
		deps:       make(map[string]map[string]struct{}, len(emails)),
		dependents: make(map[string][]string),
		emails:     make(map[string]*email.Email, len(emails)),
		released:   make(map[string]struct{}),
	}

	for _, e := range emails {
		if _, exists := g.emails[e.EmailID]; exists {
			return nil, &ValidationError{
				Reason: "duplicate_id",
				Detail: fmt.Sprintf("邮件ID重复: %s", e.EmailID),
			}
		}
		g.emails[e.EmailID] = e
	}

	for _, e := range emails {
		depSet := make(map[string]struct{}, len(e.Dependencies))
		for _, dep := range e.Dependencies {
			if _, exists := g.emails[dep]; !exists {
				return nil, &ValidationError{
					Reason: "unknown_dependency",
					Detail: fmt.Sprintf("邮件 %s 引用了不存在的依赖: %s", e.EmailID, dep),
				}
			}
			if dep == e.EmailID {
				return nil, &ValidationError{
					Reason: "cycle",
					Detail: fmt.Sprintf("检测到循环依赖: %s 依赖自身", e.EmailID),
				}
			}
			depSet[dep] = struct{}{}
		}
		g.deps[e.EmailID] = depSet
		for dep := range depSet {
			g.dependents[dep] = append(g.dependents[dep], e.EmailID)
		}
		if len(depSet) == 0 {
			g.roots = append(g.roots, e.EmailID)
		}
	}

	if cycle := g.detectCycle(); len(cycle) > 0 {
		return nil, &ValidationError{
			Reason: "cycle",
			Detail: fmt.Sprintf("检测到循环依赖: %s", strings.Join(cycle, ", ")),
		}
	}

	return g, nil
}

// detectCycle Kahn算法归约：完整归约后仍有非零入度的节点即构成环
func (g *DependencyGraph) detectCycle() []string {
	indegree := make(map[string]int, len(g.deps))
	for id, deps := range g.deps {
		indegree[id] = len(deps)
	}

	queue := make([]string, 0, len(indegree))
	for id, n := range indegree {
		if n == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, child := range g.dependents[id] {
			indegree[child]--
			if indegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if visited == len(indegree) {
		return nil
	}

	// 归约后剩余的节点都在环上或依赖环上的节点
	remaining := make([]string, 0)
	for id, n := range indegree {
		if n > 0 {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)
	return remaining
}

// Roots 返回构建时入度为0的节点（保持输入顺序），用于初始化就绪集
func (g *DependencyGraph) Roots() []*email.Email {
	roots := make([]*email.Email, 0, len(g.roots))
	for _, id := range g.roots {
		roots = append(roots, g.emails[id])
	}
	return roots
}

// MarkDone 标记节点完成并返回新解锁的下游节点（对外导出）
// "减入度-判零-释放"在图锁内完成，保证每个下游节点恰好被释放一次
func (g *DependencyGraph) MarkDone(emailID string) []*email.Email {
	g.mu.Lock()
	defer g.mu.Unlock()

	var unblocked []*email.Email
	for _, child := range g.dependents[emailID] {
		deps := g.deps[child]
		if _, ok := deps[emailID]; !ok {
			continue
		}
		delete(deps, emailID)
		if len(deps) == 0 {
			if _, done := g.released[child]; !done {
				g.released[child] = struct{}{}
				unblocked = append(unblocked, g.emails[child])
			}
		}
	}
	return unblocked
}

// Get 获取指定ID的邮件实体
func (g *DependencyGraph) Get(emailID string) (*email.Email, bool) {
	e, ok := g.emails[emailID]
	return e, ok
}

// Size 返回节点总数
func (g *DependencyGraph) Size() int {
	return len(g.emails)
}
