package flowprobe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/parkingwang/flowprobe/pkg/backend"
	"github.com/parkingwang/flowprobe/pkg/broker/amqp"
	"github.com/parkingwang/flowprobe/pkg/console"
	"github.com/parkingwang/flowprobe/pkg/store"
	"github.com/parkingwang/flowprobe/pkg/store/database"
	"github.com/parkingwang/flowprobe/pkg/store/memory"
	"github.com/parkingwang/flowprobe/pkg/store/redis"
)

// initPkgStore 注册 store.database 和 store.redis 下的所有连接
func initPkgStore() error {
	storecfg := Conf().Child("store")
	if storecfg.IsSet("database") {
		cfg := make(map[string]database.Config)
		if err := storecfg.Decode("database", &cfg); err != nil {
			return err
		}
		if err := database.RegisterFromConfig(cfg); err != nil {
			return err
		}
	}
	if storecfg.IsSet("redis") {
		cfg := make(map[string]redis.Config)
		if err := storecfg.Decode("redis", &cfg); err != nil {
			return err
		}
		if err := redis.RegisterFromConfig(cfg); err != nil {
			return err
		}
	}
	return nil
}

func closePkgStore() error {
	return errors.Join(database.Close(), redis.Close())
}

// NewDocumentStore 配置了redis时使用redis 否则使用内存
func NewDocumentStore() store.Documents {
	cfg := Conf().Child("store.documents")
	ttl := cfg.GetDuration("ttl")
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	if c, ok := redis.Lookup(cfg.GetString("redis")); ok {
		slog.Info("documents stored in redis", slog.Duration("ttl", ttl))
		return redis.NewDocuments(c, ttl)
	}
	return memory.NewDocuments(ttl)
}

// NewRunStore 配置了数据库时使用数据库 启动时自动建表
func NewRunStore() (store.Runs, error) {
	cfg := Conf().Child("store.runs")
	db, ok := database.Lookup(cfg.GetString("database"))
	if !ok {
		return memory.NewRuns(cfg.GetInt("capacity")), nil
	}
	ctx, span := TracerStart(context.Background(), "runs.migrate")
	defer span.End()
	runs := database.NewRuns(db)
	if err := runs.Migrate(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}
	slog.InfoContext(ctx, "runs stored in database", slog.String("dialect", db.Dialector.Name()))
	return runs, nil
}

// NewBackend 分析后端
func NewBackend() (*backend.Client, error) {
	var cfg backend.Config
	if err := Conf().Decode("backend", &cfg); err != nil {
		return nil, err
	}
	return backend.New(cfg)
}

// EventPublisher broker.amqp 的发布者 未配置时为空
type EventPublisher struct {
	pub *amqp.Pub
}

func (p *EventPublisher) Start(ctx context.Context) error {
	if p.pub == nil {
		return nil
	}
	return p.pub.Start(ctx)
}

func (p *EventPublisher) Stop(ctx context.Context) error {
	if p.pub == nil {
		return nil
	}
	return p.pub.Stop(ctx)
}

// NewRunNotifier 返回运行记录的通知和需要管理生命周期的发布者
func NewRunNotifier() (console.RunNotifier, *EventPublisher) {
	cfg := Conf().Child("broker.amqp")
	dsn := cfg.GetString("dsn")
	if dsn == "" {
		return amqp.Discard{}, &EventPublisher{}
	}
	exchange := cfg.GetString("exchange")
	if exchange == "" {
		exchange = "flowprobe"
	}
	opts := []amqp.Option{
		amqp.WithDsn(dsn),
		amqp.WithExchangeDeclare(amqp.ExchangeOption{Name: exchange, Kind: "topic", Durable: true}),
		amqp.WithOnError(func(err error) {
			slog.Warn("amqp session failed", slog.Any("err", err))
		}),
	}
	if queue := cfg.GetString("queue"); queue != "" {
		opts = append(opts, amqp.WithQueueDeclare(amqp.QueueOption{
			Queue:        queue,
			Durable:      true,
			BindExchange: []amqp.QueueBind{{Exchange: exchange, RoutingKey: amqp.EventRunRecorded + ".#"}},
		}))
	}
	if d := cfg.GetDuration("reconnect"); d > 0 {
		opts = append(opts, amqp.WithReconnectDelay(d))
	}
	pub := amqp.NewPub(opts...)
	return amqp.NewRunEvents(pub, exchange, cfg.GetDuration("timeout")), &EventPublisher{pub: pub}
}
