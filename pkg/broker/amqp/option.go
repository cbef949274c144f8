package amqp

import (
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Option func(*option)

func WithDsn(s string) Option {
	return func(o *option) {
		o.dsn = s
	}
}

func WithExchangeDeclare(es ...ExchangeOption) Option {
	return func(o *option) {
		o.exchanges = append(o.exchanges, es...)
	}
}

func WithQueueDeclare(qs ...QueueOption) Option {
	return func(o *option) {
		o.queues = append(o.queues, qs...)
	}
}

func WithOnError(f func(error)) Option {
	return func(o *option) {
		o.err = f
	}
}

// WithReconnectDelay 断线重连间隔 默认10秒
func WithReconnectDelay(d time.Duration) Option {
	return func(o *option) {
		o.reconnect = d
	}
}

// WithBuffer 待发送消息的缓冲大小
func WithBuffer(n int) Option {
	return func(o *option) {
		o.buffer = n
	}
}

type option struct {
	dsn string
	// 需要声明的交换机
	exchanges []ExchangeOption
	queues    []QueueOption
	err       func(error)
	reconnect time.Duration
	buffer    int
}

func defaultOption() *option {
	return &option{
		err:       func(error) {},
		reconnect: 10 * time.Second,
		buffer:    1024,
	}
}

func (o *option) apply(ch *amqp091.Channel) error {
	if err := exchangeDeclare(ch, o.exchanges...); err != nil {
		return err
	}
	return queueDeclare(ch, o.queues...)
}

// ExchangeOption 交换机信息
type ExchangeOption struct {
	// 交换机名称
	Name string
	// 交换机类型 如 fanout direct topic
	Kind string
	// Durable 持久化
	Durable bool
	// AutoDelete设置为 true 表示自动删除 慎用 不是自动删除交换机。
	AutoDelete bool
}

// QueueOption 声明队列配置
type QueueOption struct {
	Queue      string
	Durable    bool
	AutoDelete bool
	// 如果配置则自动进行交换机绑定
	BindExchange []QueueBind
}

type QueueBind struct {
	Exchange   string
	RoutingKey string
}
