package redis

import (
	"time"
)

type Config struct {
	Url          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	DialTimeout  time.Duration
	MaxRetries   int
}

func (c Config) options() []Option {
	return []Option{
		WithReadTimeout(c.ReadTimeout),
		WithWriteTimeout(c.WriteTimeout),
		WithMaxRetries(c.MaxRetries),
		WithDialTimeout(c.DialTimeout),
	}
}

func RegisterFromConfig(cfgs map[string]Config) error {
	for name, opt := range cfgs {
		if err := RegisterByName(name, opt.Url, opt.options()...); err != nil {
			return err
		}
	}
	return nil
}
