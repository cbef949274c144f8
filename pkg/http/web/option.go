package web

import (
	"io"
	"os"

	"github.com/parkingwang/flowprobe/pkg/oas"
)

type option struct {
	render          Renderer
	dumpRequestBody bool
	addr            string
	routes          Routes
	// 为空时不发布接口文档
	docInfo *oas.DocInfo
	pprof   bool
	// 启动时输出路由表
	routeOutput io.Writer
}

func defaultOption() *option {
	return &option{
		addr:        ":8080",
		render:      DefaultRender,
		routes:      make(Routes, 0),
		routeOutput: os.Stdout,
	}
}

type Option func(*option)

// WithResponseRender 自定义响应输出
func WithResponseRender(r Renderer) Option {
	return func(opt *option) {
		opt.render = r
	}
}

// WithDumpRequestBody 是否输出请求体
func WithDumpRequestBody(o bool) Option {
	return func(opt *option) {
		opt.dumpRequestBody = o
	}
}

func WithAddr(addr string) Option {
	return func(o *option) {
		o.addr = addr
	}
}

// WithOpenAPI 发布 /debug/doc/openapi.json
func WithOpenAPI(info *oas.DocInfo) Option {
	return func(o *option) {
		o.docInfo = info
	}
}

// WithPprof 注册 /debug/pprof
func WithPprof(enable bool) Option {
	return func(o *option) {
		o.pprof = enable
	}
}

// WithRouteOutput 路由表输出位置 nil 表示不输出
func WithRouteOutput(w io.Writer) Option {
	return func(o *option) {
		o.routeOutput = w
	}
}
