// Package generator 提供回复文本生成能力的两种实现：
// 模拟延迟生成器（本地canned回复）和真实外部调用生成器（OpenAI）
// 生成方式在构建时选定，worker循环内不做运行时分支
package generator

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/LENAX/email-scheduler/pkg/core/email"
)

// ResponseGenerator 回复生成器接口（对外导出）
// Generate的耗时受调用方context的硬超时约束，超时视为任务级失败
type ResponseGenerator interface {
	Generate(ctx context.Context, e *email.Email) (string, error)
}

// DefaultResponses 默认canned回复池
var DefaultResponses = []string{
	"Thank you for your email. I will get back to you shortly.",
	"I appreciate your message, and I'll respond as soon as possible.",
	"Your inquiry has been received. I'll review it and reply soon.",
	"Thanks for reaching out. Expect a detailed response shortly.",
}

// MockConfig 模拟生成器配置
type MockConfig struct {
	DelayScale time.Duration // 指数分布延迟的均值
	DelayMin   time.Duration // 延迟下界
	DelayMax   time.Duration // 延迟上界
	Responses  []string      // canned回复池（为空时使用默认池）
}

// MockGenerator 模拟延迟生成器（对外导出）
// 延迟取截断指数分布（钳制在[DelayMin, DelayMax]内），回复从池中轮转选取
type MockGenerator struct {
	cfg MockConfig

	mu      sync.Mutex
	counter int
	rng     *rand.Rand
}

// NewMockGenerator 创建模拟生成器
func NewMockGenerator(cfg MockConfig) *MockGenerator {
	if len(cfg.Responses) == 0 {
		cfg.Responses = DefaultResponses
	}
	if cfg.DelayScale <= 0 {
		cfg.DelayScale = 500 * time.Millisecond
	}
	return &MockGenerator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate 模拟一次LLM调用：有界随机延迟后返回轮转的canned回复
func (g *MockGenerator) Generate(ctx context.Context, e *email.Email) (string, error) {
	delay := g.nextDelay()

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	g.mu.Lock()
	text := g.cfg.Responses[g.counter%len(g.cfg.Responses)]
	g.counter++
	g.mu.Unlock()

	return fmt.Sprintf("Re: %s\n\n%s", e.Subject, text), nil
}

// nextDelay 计算下一次模拟延迟（截断指数分布）
func (g *MockGenerator) nextDelay() time.Duration {
	g.mu.Lock()
	sample := g.rng.ExpFloat64()
	g.mu.Unlock()

	delay := time.Duration(sample * float64(g.cfg.DelayScale))
	if delay < g.cfg.DelayMin {
		delay = g.cfg.DelayMin
	}
	if delay > g.cfg.DelayMax {
		delay = g.cfg.DelayMax
	}
	return delay
}

// ExtractPlainText 将HTML邮件正文还原为纯文本（对外导出）
// 正文不含HTML标签时原样返回
func ExtractPlainText(body string) string {
	if !strings.Contains(body, "<") {
		return body
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}

	text := strings.TrimSpace(doc.Text())
	if text == "" {
		return body
	}
	return text
}
