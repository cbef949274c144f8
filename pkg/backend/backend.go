// Package backend 外部分析服务的客户端
//
// 流程解析 任务与接口匹配 测试数据生成和执行都在后端完成
// 这里只负责请求和响应的编解码
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/parkingwang/flowprobe/pkg/http/client"
	"github.com/parkingwang/flowprobe/pkg/http/code"
	"github.com/parkingwang/flowprobe/pkg/mapping"
	"github.com/parkingwang/flowprobe/pkg/oas"
	"github.com/sony/gobreaker/v2"
)

type Config struct {
	// 后端地址 如 http://localhost:8080
	BaseURL string
	// 单次请求超时 生成和执行可能较慢
	Timeout time.Duration
	Breaker BreakerConfig
}

// BreakerConfig 连续失败 Failures 次后熔断 Timeout 后半开
type BreakerConfig struct {
	Failures    uint32
	MaxRequests uint32
	Interval    time.Duration
	Timeout     time.Duration
}

func (c BreakerConfig) settings() *gobreaker.Settings {
	if c.Failures == 0 {
		return nil
	}
	failures := c.Failures
	return &gobreaker.Settings{
		Name:        "backend",
		MaxRequests: c.MaxRequests,
		Interval:    c.Interval,
		Timeout:     c.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	}
}

type Client struct {
	c *client.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend: base url is required")
	}
	c, err := client.NewClient(client.Option{
		Client:         client.NewHTTPClient(cfg.Timeout),
		ParseResponse:  parseResponse,
		BaseURL:        cfg.BaseURL,
		BreakerSetting: cfg.Breaker.settings(),
	})
	if err != nil {
		return nil, err
	}
	return &Client{c: c}, nil
}

// Map 流程任务与接口匹配
func (c *Client) Map(ctx context.Context, bpmnXML, openAPI string) (*mapping.MappingResult, error) {
	out := new(mapping.MappingResult)
	err := c.c.Post("/api/mapping/map").
		Body(url.Values{"bpmnXml": {bpmnXML}, "openApiJson": {openAPI}}).
		Do(ctx, out)
	if err != nil {
		return nil, upstream(err)
	}
	return out, nil
}

// Recommendations 匹配建议 结构由后端决定 原样返回
func (c *Client) Recommendations(ctx context.Context, bpmnXML, openAPI string) (*oas.Object, error) {
	out := new(oas.Object)
	err := c.c.Post("/api/mapping/recommendations").
		Body(url.Values{"bpmnXml": {bpmnXML}, "openApiJson": {openAPI}}).
		Do(ctx, out)
	if err != nil {
		return nil, upstream(err)
	}
	return out, nil
}

type GenerateRequest struct {
	GenerationType string                 `json:"generationType"`
	MappingResult  *mapping.MappingResult `json:"mappingResult"`
	// 解析后的 OpenAPI 文档 为空时发送 null
	OpenAPIModel  *oas.Object `json:"openApiModel"`
	Scenario      string      `json:"scenario"`
	VariantsCount int         `json:"variantsCount"`
}

// Generate 生成测试数据 返回的数据作为执行时的 testDataJson
func (c *Client) Generate(ctx context.Context, req *GenerateRequest) (*oas.Object, error) {
	out := new(oas.Object)
	if err := c.c.Post("/api/generator/generate").Body(req).Do(ctx, out); err != nil {
		return nil, upstream(err)
	}
	return out, nil
}

type ExecuteRequest struct {
	BpmnXML           string `json:"bpmnXml" form:"bpmnXml" binding:"required"`
	OpenAPIJSON       string `json:"openApiJson" form:"openApiJson" binding:"required"`
	TestDataJSON      string `json:"testDataJson" form:"testDataJson" binding:"required"`
	MappingResultJSON string `json:"mappingResultJson" form:"mappingResultJson" binding:"required"`
	BaseURL           string `json:"baseUrl" form:"baseUrl" binding:"required"`
	VariantIndex      int    `json:"variantIndex" form:"variantIndex"`
	StopOnFirstError  bool   `json:"stopOnFirstError" form:"stopOnFirstError"`
}

func (r *ExecuteRequest) values() url.Values {
	return url.Values{
		"bpmnXml":           {r.BpmnXML},
		"openApiJson":       {r.OpenAPIJSON},
		"testDataJson":      {r.TestDataJSON},
		"mappingResultJson": {r.MappingResultJSON},
		"baseUrl":           {r.BaseURL},
		"variantIndex":      {strconv.Itoa(r.VariantIndex)},
		"stopOnFirstError":  {strconv.FormatBool(r.StopOnFirstError)},
	}
}

// ExecuteSimple 按生成的数据执行流程
func (c *Client) ExecuteSimple(ctx context.Context, req *ExecuteRequest) (*ExecutionResult, error) {
	out := new(ExecutionResult)
	if err := c.c.Post("/api/execution/execute-simple").Body(req.values()).Do(ctx, out); err != nil {
		return nil, upstream(err)
	}
	return out, nil
}

// parseResponse 4xx 保留后端的状态码和消息 5xx 统一为 502
func parseResponse(res *http.Response, out any) error {
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		msg := errorMessage(body)
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		if res.StatusCode >= http.StatusInternalServerError {
			return code.NewBadGatewayError("backend: " + msg)
		}
		return code.NewCodeError(res.StatusCode, msg)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return code.NewBadGatewayError("backend: invalid response: " + err.Error())
	}
	return nil
}

// errorMessage 后端错误体可能是 {message} {error} 或纯文本
func errorMessage(body []byte) string {
	v, err := oas.Decode(body)
	if err != nil {
		return strings.TrimSpace(string(body))
	}
	o, ok := v.(*oas.Object)
	if !ok {
		return oas.String(v)
	}
	if m, ok := oas.FirstPresent(o, "message", "error", "detail"); ok {
		return oas.String(m)
	}
	return strings.TrimSpace(string(body))
}

// upstream 连接失败 熔断等非 CodeError 统一视为网关错误
func upstream(err error) error {
	var ce *code.CodeError
	if errors.As(err, &ce) {
		return err
	}
	return code.Wrap(http.StatusBadGateway, err)
}
