package email

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	StatusPending  = "PENDING"
	StatusReady    = "READY"
	StatusInFlight = "INFLIGHT"
	StatusDone     = "DONE"
	StatusFailed   = "FAILED"
)

// In 外部接口返回的原始邮件对象
// deadline为相对抓取时刻的秒数，dependencies兼容数组和逗号分隔字符串两种编码
type In struct {
	EmailID      string   `json:"email_id"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	Deadline     float64  `json:"deadline"`
	Dependencies DepList  `json:"dependencies"`
}

// DepList 依赖ID列表（自定义反序列化，支持"a,b,c"字符串形式）
type DepList []string

// UnmarshalJSON 实现依赖字段的双格式解析
func (d *DepList) UnmarshalJSON(data []byte) error {
	var asList []string
	if err := json.Unmarshal(data, &asList); err == nil {
		*d = asList
		return nil
	}

	var asString string
	if err := json.Unmarshal(data, &asString); err != nil {
		return fmt.Errorf("dependencies字段格式无效: %s", string(data))
	}

	*d = ParseDeps(asString)
	return nil
}

// ParseDeps 解析逗号分隔的依赖ID字符串（忽略空白项）
func ParseDeps(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}
	}

	parts := strings.Split(raw, ",")
	deps := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			deps = append(deps, p)
		}
	}
	return deps
}

// Email 内部邮件实体（对外导出）
// 由In转换而来，携带绝对截止时间；状态变更是唯一的可变路径
type Email struct {
	EmailID      string
	Subject      string
	Body         string
	Deadline     time.Time // 绝对截止时间（抓取时刻 + 相对秒数）
	Dependencies []string
	Seq          int // 入队顺序号，用于同deadline的稳定排序

	mu     sync.RWMutex
	status string
}

// FromExternal 将原始邮件转换为内部实体
// fetchStart: 抓取开始时刻，相对deadline以此为基准换算
func FromExternal(raw In, fetchStart time.Time, seq int) *Email {
	return &Email{
		EmailID:      raw.EmailID,
		Subject:      raw.Subject,
		Body:         raw.Body,
		Deadline:     fetchStart.Add(time.Duration(raw.Deadline * float64(time.Second))),
		Dependencies: append([]string(nil), raw.Dependencies...),
		Seq:          seq,
		status:       StatusPending,
	}
}

// Status 获取当前状态
func (e *Email) Status() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

// SetStatus 设置状态
func (e *Email) SetStatus(status string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = status
}

// Out 响应提交接口要求的出站payload格式
type Out struct {
	EmailID      string `json:"email_id"`
	ResponseBody string `json:"response_body"`
	APIKey       string `json:"api_key"`
	TestMode     string `json:"test_mode,omitempty"`
}
