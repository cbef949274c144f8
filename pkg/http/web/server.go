// Package web gin 服务 rpc风格的handler 自动绑定和校验请求参数
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/parkingwang/flowprobe/pkg/http/code"
	"github.com/parkingwang/flowprobe/pkg/oas"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type Server struct {
	opt     *option
	e       *gin.Engine
	httpsrv *http.Server
}

func New(opts ...Option) *Server {
	opt := defaultOption()
	for _, o := range opts {
		o(opt)
	}
	// 关闭gin默认的校验
	// 等待所有都读取完成后统一校验
	binding.Validator = nil
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.ContextWithFallback = true
	e.NoRoute(func(ctx *gin.Context) {
		opt.render(ctx, nil, code.NewNotfoundError("route not found"))
	})
	e.Use(
		middleware("flowprobe"),
		gin.CustomRecovery(func(c *gin.Context, err any) {
			slog.ErrorContext(c, "gin.panic", slog.Any("err", err))
			c.Abort()
			opt.render(c, nil,
				code.NewCodeError(
					http.StatusInternalServerError,
					http.StatusText(http.StatusInternalServerError),
				),
			)
		}),
	)
	if opt.pprof {
		pprof.Register(e)
	}
	if opt.docInfo != nil {
		info := *opt.docInfo
		e.GET("/debug/doc/openapi.json", func(ctx *gin.Context) {
			spec := opt.routes.ToDoc(info)
			spec.Servers = []oas.Server{{URL: "http://" + ctx.Request.Host}}
			ctx.IndentedJSON(http.StatusOK, spec)
		})
	}

	return &Server{
		opt: opt,
		e:   e,
		httpsrv: &http.Server{
			Handler:           e,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	s.opt.routes.echo(s.opt.routeOutput)
	l, err := net.Listen("tcp", s.opt.addr)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Starting HTTP server", slog.String("addr", s.opt.addr))
	go func() {
		if err := s.httpsrv.Serve(l); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", slog.Any("err", err))
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	slog.InfoContext(ctx, "Shutdown HTTP server", slog.String("addr", s.opt.addr))
	return s.httpsrv.Shutdown(ctx)
}

// Router rpc风格的路由
func (s *Server) Router() Router {
	return &route{
		opt: s.opt,
		r:   s.e,
	}
}

// GinEngine 返回原始的ginEngine
func (s *Server) GinEngine() *gin.Engine {
	return s.e
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.e.ServeHTTP(w, r)
}

// GinContext 返回原始的ginContext
func GinContext(ctx context.Context) (*gin.Context, bool) {
	c, ok := ctx.(*gin.Context)
	return c, ok
}

func middleware(service string) gin.HandlerFunc {
	tracer := otel.GetTracerProvider().Tracer("github.com/parkingwang/flowprobe/pkg/http/web")
	return func(c *gin.Context) {
		savedCtx := c.Request.Context()
		defer func() {
			c.Request = c.Request.WithContext(savedCtx)
		}()

		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		ctx := otel.GetTextMapPropagator().Extract(savedCtx, propagation.HeaderCarrier(c.Request.Header))
		spanName := c.FullPath()
		if spanName == "" {
			spanName = fmt.Sprintf("HTTP %s route not found", c.Request.Method)
		} else {
			spanName = c.Request.Method + " " + spanName
		}
		ctx, span := tracer.Start(ctx, spanName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("service.name", service),
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", c.FullPath()),
				attribute.String("url.path", c.Request.URL.Path),
				attribute.String("client.address", c.ClientIP()),
				attribute.String("user_agent.original", c.Request.UserAgent()),
			),
		)
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}

		loglvl := slog.LevelInfo
		logattrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("ip", c.ClientIP()),
			slog.Int("status", status),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
		}

		if len(c.Errors) > 0 {
			span.SetAttributes(attribute.String("gin.errors", c.Errors.String()))
			span.SetStatus(codes.Error, c.Errors.String())
			loglvl = slog.LevelError
			logattrs = append(logattrs, slog.String("err", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		if rerr := c.GetString("gin.response.err"); rerr != "" {
			logattrs = append(logattrs, slog.String("response.error", rerr))
			if status >= http.StatusInternalServerError {
				loglvl = slog.LevelError
			}
		}

		slog.LogAttrs(ctx, loglvl, "gin.access", logattrs...)
	}
}
