package main

import (
	"flag"

	"github.com/parkingwang/flowprobe"
	"github.com/parkingwang/flowprobe/pkg/backend"
	"github.com/parkingwang/flowprobe/pkg/console"
	"github.com/parkingwang/flowprobe/pkg/store"
)

var info = flowprobe.AppInfo{
	Name:        "flowprobe",
	Description: "BPMN 流程与 OpenAPI 接口的映射 测试数据生成和执行",
}

func main() {
	path := flag.String("config", "", "配置文件 为空时只读取环境变量")
	flag.Parse()

	flowprobe.SetConfig(*path)
	app := flowprobe.New(info)

	app.Provide(
		flowprobe.NewDocumentStore,
		flowprobe.NewRunStore,
		flowprobe.NewBackend,
		flowprobe.NewRunNotifier,
		func(docs store.Documents, runs store.Runs, b *backend.Client, n console.RunNotifier) *console.Console {
			return console.New(docs, runs, b, n)
		},
	)

	app.Run(
		// 运行记录事件 未配置 broker.amqp 时不做任何事
		func(p *flowprobe.EventPublisher) flowprobe.Servicer {
			return p
		},
		func(c *console.Console) flowprobe.Servicer {
			srv := app.CreateWebServer()
			c.Register(srv.Router())
			return srv
		},
	)
}
