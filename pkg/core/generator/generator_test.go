package generator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/LENAX/email-scheduler/pkg/core/email"
)

func TestMockGenerator_DelayBounds(t *testing.T) {
	g := NewMockGenerator(MockConfig{
		DelayScale: 10 * time.Millisecond,
		DelayMin:   5 * time.Millisecond,
		DelayMax:   20 * time.Millisecond,
	})

	for i := 0; i < 50; i++ {
		d := g.nextDelay()
		if d < 5*time.Millisecond || d > 20*time.Millisecond {
			t.Fatalf("第%d次采样延迟%v超出[5ms, 20ms]钳制范围", i, d)
		}
	}
}

func TestMockGenerator_ResponseRotation(t *testing.T) {
	pool := []string{"first", "second", "third"}
	g := NewMockGenerator(MockConfig{
		DelayMin:  time.Microsecond,
		DelayMax:  time.Microsecond,
		Responses: pool,
	})

	e := &email.Email{EmailID: "e1", Subject: "hello"}
	for round := 0; round < 2; round++ {
		for _, expected := range pool {
			text, err := g.Generate(context.Background(), e)
			if err != nil {
				t.Fatalf("生成失败: %v", err)
			}
			if !strings.HasPrefix(text, "Re: hello\n\n") {
				t.Fatalf("期望回复带Re:前缀，实际: %q", text)
			}
			if !strings.HasSuffix(text, expected) {
				t.Fatalf("期望轮转到%q，实际: %q", expected, text)
			}
		}
	}
}

func TestMockGenerator_ContextCancel(t *testing.T) {
	g := NewMockGenerator(MockConfig{
		DelayMin: time.Second,
		DelayMax: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.Generate(ctx, &email.Email{EmailID: "e1"})
	if err == nil {
		t.Fatal("期望context超时返回错误")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("取消后未及时返回，耗时%v", elapsed)
	}
}

func TestMockGenerator_DefaultPool(t *testing.T) {
	g := NewMockGenerator(MockConfig{DelayMin: time.Microsecond, DelayMax: time.Microsecond})
	text, err := g.Generate(context.Background(), &email.Email{Subject: "q"})
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}
	if !strings.HasSuffix(text, DefaultResponses[0]) {
		t.Errorf("期望使用默认回复池，实际: %q", text)
	}
}

func TestExtractPlainText(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		expected string
	}{
		{"纯文本原样返回", "hello world", "hello world"},
		{"剥离HTML标签", "<p>hello <b>world</b></p>", "hello world"},
		{"嵌套结构", "<div><p>line one</p></div>", "line one"},
		{"空正文", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractPlainText(tc.body); got != tc.expected {
				t.Errorf("期望%q，实际%q", tc.expected, got)
			}
		})
	}
}
