package flowprobe

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/parkingwang/flowprobe/pkg/http/web"
	"github.com/parkingwang/flowprobe/pkg/oas"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

type Application struct {
	fxProvides    []any
	fxInvokeFuncs []any
	info          AppInfo
	tp            *sdktrace.TracerProvider
}

// New 初始化日志 trace 和 pkg/store
// 失败时直接退出进程
func New(info AppInfo) *Application {
	info = info.withDefaults()
	cfg := Conf().Child("app")
	slog.SetDefault(slog.New(NewTraceSlogHandler(
		os.Stderr,
		cfg.GetBool("log.addSource"),
		func() slog.Leveler {
			if cfg.GetBool("log.debug") {
				return slog.LevelDebug
			}
			return slog.LevelInfo
		}(),
	)))

	slog.Info("init app",
		slog.String("name", info.Name),
		slog.String("version", info.Version),
		slog.String("traceExportType", cfg.GetString("traceExport.type")),
	)

	// enable trace
	tp, err := newTraceProvider(info, initTraceExport())
	if err != nil {
		slog.Error("init tracer provider failed", slog.Any("err", err))
		os.Exit(1)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		b3.New(b3.WithInjectEncoding(b3.B3MultipleHeader)),
		propagation.TraceContext{},
	))
	otel.SetTracerProvider(tp)

	// 自动加载pkg/store
	if err := initPkgStore(); err != nil {
		slog.Error("init pkg/store failed", slog.Any("err", err))
		os.Exit(1)
	}

	return &Application{info: info, tp: tp}
}

func (app *Application) Info() AppInfo {
	return app.info
}

// Provide 依赖注入构造器
func (app *Application) Provide(provide ...any) {
	app.fxProvides = append(app.fxProvides, provide...)
}

// Invoke 注册调用
func (app *Application) Invoke(funcs ...any) {
	app.fxInvokeFuncs = append(app.fxInvokeFuncs, funcs...)
}

func fxLifecycle(srvs []Servicer, lc fx.Lifecycle) {
	for _, v := range srvs {
		lc.Append(fx.Hook{
			OnStart: v.Start,
			OnStop:  v.Stop,
		})
	}
}

// Options 组装fx选项 srv 为返回 Servicer 的构造器
func (app *Application) Options(srv ...any) fx.Option {
	provides := append([]any(nil), app.fxProvides...)
	for _, v := range srv {
		provides = append(provides, asServicer(v))
	}
	return fx.Options(
		fx.WithLogger(func() fxevent.Logger {
			return &fxInjectLogger{
				baselog: slog.With(slog.String("type", "fx")),
			}
		}),
		fx.Supply(app.info),
		fx.Provide(provides...),
		// 最先注册 最后停止 保证其他服务的span能导出
		fx.Invoke(func(lc fx.Lifecycle) {
			lc.Append(fx.StopHook(app.shutdown))
		}),
		fx.Invoke(app.fxInvokeFuncs...),
		fx.Invoke(
			fx.Annotate(
				fxLifecycle,
				fx.ParamTags(`group:"services"`),
			),
		),
	)
}

func (app *Application) Run(srv ...any) {
	fx.New(app.Options(srv...)).Run()
}

func (app *Application) shutdown(ctx context.Context) error {
	if err := closePkgStore(); err != nil {
		slog.WarnContext(ctx, "close pkg/store failed", slog.Any("err", err))
	}
	if app.tp != nil {
		return app.tp.Shutdown(ctx)
	}
	return nil
}

func asServicer(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(Servicer)),
		fx.ResultTags(`group:"services"`),
	)
}

type fxInjectLogger struct {
	baselog *slog.Logger
}

func (m *fxInjectLogger) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.Provided:
		if e.Err != nil {
			m.baselog.Error("provided error encountered while applying options", slog.Any("err", e.Err))
		}
	case *fxevent.Invoked:
		if e.Err != nil {
			m.baselog.Error("invoked failed", slog.Any("err", e.Err), slog.String("function", e.FunctionName))
		}
	case *fxevent.Stopping:
		m.baselog.Info("received signal", slog.String("signal", strings.ToUpper(e.Signal.String())))
	case *fxevent.Stopped:
		if e.Err != nil {
			m.baselog.Error("stop failed", slog.Any("err", e.Err))
		}
	case *fxevent.Started:
		if e.Err != nil {
			m.baselog.Error("start failed", slog.Any("err", e.Err))
		} else {
			m.baselog.Info("started")
		}
	}
}

// Servicer 服务接口
type Servicer interface {
	Start(context.Context) error
	Stop(context.Context) error
}

// CreateWebServer 按 server.web 配置创建web服务
func (app *Application) CreateWebServer() *web.Server {
	cfg := Conf().Child("server.web")
	opts := []web.Option{
		web.WithDumpRequestBody(cfg.GetBool("dumpRequest")),
		web.WithPprof(cfg.GetBool("pprof")),
	}
	if addr := cfg.GetString("addr"); addr != "" {
		opts = append(opts, web.WithAddr(addr))
	}
	if cfg.GetBool("openapi") {
		opts = append(opts, web.WithOpenAPI(&oas.DocInfo{
			Title:       app.info.Name,
			Description: app.info.Description,
			Version:     app.info.Version,
		}))
	}
	return web.New(opts...)
}

func initTraceExport() TraceExporter {
	cfg := Conf().Child("app.traceExport")
	switch cfg.GetString("type") {
	case "http":
		return ExportHTTP(cfg.GetString("endpoint"), cfg.GetBool("usehttps"))
	case "grpc":
		return ExportGRPC(cfg.GetString("endpoint"))
	case "stdout":
		return ExportStdout(cfg.GetBool("pretty"))
	}
	return ExportEmpty()
}
