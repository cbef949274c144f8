package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewHTTPClient 带trace的http client timeout为0表示不超时
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(
			http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "HTTP " + r.Method + " " + r.URL.Path
			}),
		),
		Timeout: timeout,
	}
}

type Client struct {
	opt Option
	// 熔断器
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

type Option struct {
	// 默认使用 NewHTTPClient(0)
	Client *http.Client
	// 解析响应 **必须包含**
	// 无需手动response.Body.Close() 会自动调用
	ParseResponse func(*http.Response, any) error
	// 修改请求
	// 比如统一添加auth 或 签名认证等信息
	ModifyRequest func(*http.Request)
	// 基础url
	BaseURL string
	// 熔断器配置
	BreakerSetting *gobreaker.Settings
}

func NewClient(opt Option) (*Client, error) {
	if opt.ParseResponse == nil {
		return nil, errors.New("client: option ParseResponse must be set")
	}
	if opt.Client == nil {
		opt.Client = NewHTTPClient(0)
	}
	opt.BaseURL = strings.TrimRight(opt.BaseURL, "/")
	c := &Client{opt: opt}
	if opt.BreakerSetting != nil {
		c.breaker = gobreaker.NewCircuitBreaker[*http.Response](*opt.BreakerSetting)
	}
	return c, nil
}

func MustClient(opt Option) *Client {
	m, err := NewClient(opt)
	if err != nil {
		panic(err)
	}
	return m
}

// Do 发送请求
// 有些情况下比较特殊 需要完全自定义request
// r,_:=http.NewRequestWithContext(ctx...)
// client.Do(r, &responseData)
func (c *Client) Do(r *http.Request, out any) error {
	if c.opt.ModifyRequest != nil {
		c.opt.ModifyRequest(r)
	}
	send := func() (*http.Response, error) {
		res, err := c.opt.Client.Do(r)
		if err != nil {
			return nil, err
		}
		// 5xx 计入熔断失败次数
		if res.StatusCode >= http.StatusInternalServerError {
			return res, &statusError{res.StatusCode}
		}
		return res, nil
	}
	var (
		response *http.Response
		err      error
	)
	if c.breaker != nil {
		response, err = c.breaker.Execute(send)
	} else {
		response, err = send()
	}
	var se *statusError
	if err != nil && !(errors.As(err, &se) && response != nil) {
		return err
	}
	defer response.Body.Close()
	return c.opt.ParseResponse(response, out)
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("client: response status %d", e.code)
}

func (c *Client) Get(url string, args ...any) Requester {
	return c.create(http.MethodGet, url, args...)
}

func (c *Client) Post(url string, args ...any) Requester {
	return c.create(http.MethodPost, url, args...)
}

func (c *Client) Create(method, url string, args ...any) Requester {
	return c.create(method, url, args...)
}

type Requester interface {
	Header(...string) Requester
	// Body request body
	// eq：string/[]bytes/io.Reader/url.Values(表单)/any(tojson)
	Body(any) Requester
	BuildRawContextRequest(context.Context) (*http.Request, error)
	Do(context.Context, any) error
}

type request struct {
	m      *Client
	url    string
	method string
	header map[string]string
	body   io.Reader
	err    error
}

var requestPool = sync.Pool{
	New: func() any {
		return &request{}
	},
}

func (c *Client) create(method, uri string, args ...any) Requester {
	req := requestPool.Get().(*request)
	req.method = method
	if len(args) > 0 {
		uri = fmt.Sprintf(uri, args...)
	}
	req.url = uri
	req.header = make(map[string]string)
	req.m = c
	return req
}

func (r *request) Header(kvs ...string) Requester {
	if len(kvs)%2 != 0 {
		kvs = append(kvs, "")
	}
	for i := 0; i < len(kvs); i += 2 {
		r.header[kvs[i]] = kvs[i+1]
	}
	return r
}

// BuildRawContextRequest 构建原始http.Request
func (r *request) BuildRawContextRequest(ctx context.Context) (*http.Request, error) {
	if r.err != nil {
		return nil, r.err
	}
	req, err := http.NewRequestWithContext(ctx, r.method, r.m.opt.BaseURL+r.url, r.body)
	if err != nil {
		return nil, err
	}
	for k, v := range r.header {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Body request body
// eq：string/[]bytes/io.Reader/url.Values/any(tojson)
// 未指定Content-Type时 按类型自动设置
func (r *request) Body(a any) Requester {
	if a == nil {
		return r
	}
	contentType := ""
	switch v := a.(type) {
	case string:
		r.body = strings.NewReader(v)
	case []byte:
		r.body = bytes.NewReader(v)
	case url.Values:
		r.body = strings.NewReader(v.Encode())
		contentType = "application/x-www-form-urlencoded"
	case io.Reader:
		r.body = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			r.err = fmt.Errorf("client: encode body: %w", err)
			return r
		}
		r.body = bytes.NewReader(b)
		contentType = "application/json"
	}
	if _, ok := r.header["Content-Type"]; !ok && contentType != "" {
		r.header["Content-Type"] = contentType
	}
	return r
}

// Do 执行请求 一旦执行 则request对象变为无效 请勿再次使用
// out 相应的对象 需要调用option.ParseResponse 处理
func (r *request) Do(ctx context.Context, out any) error {
	defer func() {
		r.body = nil
		r.err = nil
		r.m = nil
		requestPool.Put(r)
	}()
	req, err := r.BuildRawContextRequest(ctx)
	if err != nil {
		return err
	}
	return r.m.Do(req, out)
}
