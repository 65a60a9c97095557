// Package client 封装邮件外部接口的HTTP访问：拉取邮件列表、提交回复
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/LENAX/email-scheduler/pkg/core/email"
)

// DeliveryError 投递失败错误（对外导出）
// 按HTTP状态码分类：4xx为永久错误（不重试），5xx及网络层错误为瞬时错误（可重试）
type DeliveryError struct {
	StatusCode int
	Body       string
	Err        error // 网络层错误（此时StatusCode为0）
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("投递请求失败: %v", e.Err)
	}
	return fmt.Sprintf("投递返回异常状态 %d: %s", e.StatusCode, e.Body)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Transient 判断是否为瞬时错误（可重试）
func (e *DeliveryError) Transient() bool {
	if e.Err != nil {
		return true
	}
	return e.StatusCode >= 500
}

// IsTransient 判断任意错误是否为瞬时投递错误
func IsTransient(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Transient()
	}
	return false
}

// EmailClient 邮件接口客户端（对外导出）
// 复用同一个http.Client以共享连接池
type EmailClient struct {
	httpClient *http.Client
	emailsURL  string
	respondURL string
	apiKey     string
}

// NewEmailClient 创建EmailClient
func NewEmailClient(httpClient *http.Client, emailsURL, respondURL, apiKey string) *EmailClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &EmailClient{
		httpClient: httpClient,
		emailsURL:  emailsURL,
		respondURL: respondURL,
		apiKey:     apiKey,
	}
}

// FetchEmails 拉取待处理邮件列表
// testMode为true时附带test_mode=true参数
func (c *EmailClient) FetchEmails(ctx context.Context, testMode bool) ([]email.In, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	if testMode {
		params.Set("test_mode", "true")
	}

	reqURL := c.emailsURL
	if strings.Contains(reqURL, "?") {
		reqURL += "&" + params.Encode()
	} else {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建拉取请求失败: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("拉取邮件失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("拉取邮件返回异常状态 %d: %s", resp.StatusCode, string(body))
	}

	var emails []email.In
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return nil, fmt.Errorf("解析邮件列表失败: %w", err)
	}

	return emails, nil
}

// PostResponse 提交单条回复
// 非2xx响应转换为DeliveryError供上层按瞬时/永久分类
func (c *EmailClient) PostResponse(ctx context.Context, payload email.Out) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化回复payload失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.respondURL, strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("创建提交请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &DeliveryError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	// 响应体内容不关心，读完以复用连接
	io.Copy(io.Discard, resp.Body)
	return nil
}
