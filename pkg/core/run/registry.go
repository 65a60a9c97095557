package run

import (
	"sync"
	"time"

	"github.com/LENAX/email-scheduler/pkg/sink"
)

// run状态机：PENDING → RUNNING → COMPLETED | FAILED
const (
	StatusPending   = "PENDING"
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// 失败阶段标识，用于区分"校验阶段被拒绝"和"处理阶段部分失败"
const (
	StageFetch      = "fetch"
	StageParse      = "parse"
	StageValidation = "validation"
	StageProcessing = "processing"
)

// State 单次run的状态快照（对外导出）
type State struct {
	RunID        string       `json:"run_id"`
	Status       string       `json:"status"`
	Stage        string       `json:"stage,omitempty"` // 失败发生的阶段
	ErrorMessage string       `json:"error_message,omitempty"`
	TestMode     bool         `json:"test_mode"`
	TotalEmails  int          `json:"total_emails"`
	DoneCount    int          `json:"done_count"`
	FailedCount  int          `json:"failed_count"`
	Delivery     sink.Metrics `json:"delivery"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   *time.Time   `json:"finished_at,omitempty"`
}

// Registry run状态注册表（对外导出）
// 以run_id为键，由协调器独占持有；查询返回快照副本避免外部修改
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*State
}

// NewRegistry 创建注册表
func NewRegistry() *Registry {
	return &Registry{
		runs: make(map[string]*State),
	}
}

// Create 创建一条PENDING状态的run记录
func (r *Registry) Create(runID string, testMode bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.runs[runID] = &State{
		RunID:     runID,
		Status:    StatusPending,
		TestMode:  testMode,
		StartedAt: time.Now(),
	}
}

// Update 在注册表锁内更新指定run的状态
func (r *Registry) Update(runID string, fn func(*State)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.runs[runID]; ok {
		fn(state)
	}
}

// Get 查询run状态快照，不存在时返回(State{}, false)
func (r *Registry) Get(runID string) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.runs[runID]
	if !ok {
		return State{}, false
	}
	return *state, true
}

// List 返回全部run状态快照
func (r *Registry) List() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make([]State, 0, len(r.runs))
	for _, s := range r.runs {
		states = append(states, *s)
	}
	return states
}
