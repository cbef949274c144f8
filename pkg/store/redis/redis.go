package redis

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/extra/redisotel/v8"
	"github.com/go-redis/redis/v8"
)

var (
	mu sync.RWMutex
	rs = make(map[string]*redis.Client)
)

const defaultName = "default"

// Register 使用默认名称 default 进行注册
func Register(dsn string, opts ...Option) error {
	return RegisterByName(defaultName, dsn, opts...)
}

// RegisterByName 注册redis
// dsn  tcp://password@127.0.0.1:6379/0
func RegisterByName(name, dsn string, opts ...Option) error {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := rs[name]; ok {
		return fmt.Errorf("redis %s already registered", name)
	}
	opt, err := parseDsn(dsn)
	if err != nil {
		return fmt.Errorf("redis: parse dsn %w", err)
	}
	for _, o := range opts {
		if err := o(opt); err != nil {
			return err
		}
	}
	c := redis.NewClient(opt)
	c.AddHook(redisotel.NewTracingHook())
	rs[name] = c
	return nil
}

// Get 获取已注册的redis client实例
// 如果未注册则会panic
func Get(name ...string) *redis.Client {
	c, ok := Lookup(name...)
	if ok {
		return c
	}
	panic(fmt.Sprintf("redis %s not registered", nameOf(name)))
}

// Lookup 与 Get 相同 未注册时返回 false
func Lookup(name ...string) (*redis.Client, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := rs[nameOf(name)]
	return c, ok
}

// Close 关闭所有连接并清空注册表
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	var first error
	for name, c := range rs {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
		delete(rs, name)
	}
	return first
}

func nameOf(name []string) string {
	if len(name) == 0 || name[0] == "" {
		return defaultName
	}
	return name[0]
}

// Option redis选项
type Option func(*redis.Options) error

func WithMaxRetries(n int) Option {
	return func(o *redis.Options) error {
		o.MaxRetries = n
		return nil
	}
}

func WithDialTimeout(n time.Duration) Option {
	return func(o *redis.Options) error {
		o.DialTimeout = n
		return nil
	}
}

func WithReadTimeout(n time.Duration) Option {
	return func(o *redis.Options) error {
		o.ReadTimeout = n
		return nil
	}
}

func WithWriteTimeout(n time.Duration) Option {
	return func(o *redis.Options) error {
		o.WriteTimeout = n
		return nil
	}
}

// parseDsn scheme 为网络类型 只有用户名时作为密码使用
func parseDsn(dsn string) (*redis.Options, error) {
	x, err := url.Parse(dsn)
	if err != nil {
		return nil, err
	}
	if x.Host == "" {
		return nil, fmt.Errorf("missing host in %q", dsn)
	}
	var db int
	if p := strings.TrimPrefix(x.Path, "/"); p != "" {
		if db, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid db %q", p)
		}
	}
	user := x.User.Username()
	pwd, ok := x.User.Password()
	if !ok && user != "" {
		pwd = user
		user = ""
	}
	network := x.Scheme
	if network == "redis" || network == "" {
		network = "tcp"
	}
	return &redis.Options{
		Network:  network,
		Addr:     x.Host,
		Username: user,
		Password: pwd,
		DB:       db,
	}, nil
}
