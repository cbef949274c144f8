// Package amqp 运行记录事件的发布
package amqp

import (
	"context"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type client struct {
	dsn string
}

type session struct {
	ch   *amqp091.Channel
	conn *amqp091.Connection
}

func (s *session) close() {
	s.ch.Close()
	s.conn.Close()
}

func (c *client) session() (*session, error) {
	conn, err := amqp091.Dial(c.dsn)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &session{ch, conn}, nil
}

// runloop 连接断开后间隔 dur 重连 直到 ctx 结束
func (c *client) runloop(ctx context.Context, dur time.Duration, f func(context.Context, *session, error)) {
	for {
		if ctx.Err() != nil {
			return
		}
		sess, err := c.session()
		f(ctx, sess, err)
		if err == nil {
			sess.close()
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(dur):
		}
	}
}

func exchangeDeclare(ch *amqp091.Channel, es ...ExchangeOption) error {
	// 自动声明exchange
	for _, x := range es {
		if err := ch.ExchangeDeclare(
			x.Name, x.Kind, x.Durable, x.AutoDelete, false, false, nil,
		); err != nil {
			return err
		}
	}
	return nil
}

func queueDeclare(ch *amqp091.Channel, qs ...QueueOption) error {
	for _, x := range qs {
		if _, err := ch.QueueDeclare(
			x.Queue, x.Durable, x.AutoDelete, false, false, nil,
		); err != nil {
			return err
		}
		for _, v := range x.BindExchange {
			if err := ch.QueueBind(
				x.Queue, v.Exchange, v.RoutingKey, false, nil,
			); err != nil {
				return err
			}
		}
	}
	return nil
}
