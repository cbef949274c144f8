package database

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

var (
	mu  sync.RWMutex
	dbs = make(map[string]*gorm.DB)
)

const defaultName = "default"

// Register 注册默认数据库
// 当只有一个数据库的时候推荐使用
func Register(dsn string, opts ...Option) error {
	return RegisterByName(defaultName, dsn, opts...)
}

// RegisterByName 按名称注册数据库
// 适合同时需要操作多个数据库
func RegisterByName(name, dsn string, opts ...Option) error {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := dbs[name]; ok {
		return fmt.Errorf("db %s already registered", name)
	}
	db, err := gorm.Open(Dialector(dsn), &gorm.Config{Logger: &queryLogger{}})
	if err != nil {
		return err
	}
	// 启动opentelemetry
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	for _, apply := range opts {
		if err := apply(db); err != nil {
			return err
		}
	}
	dbs[name] = db
	return nil
}

// Dialector 按dsn选择驱动
// postgres://... 或 host=... 使用postgres 其余为mysql
func Dialector(dsn string) gorm.Dialector {
	if isPostgres(dsn) {
		return postgres.Open(dsn)
	}
	return mysql.Open(strings.TrimPrefix(dsn, "mysql://"))
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.HasPrefix(dsn, "host=")
}

// Get 获取数据库
func Get(ctx context.Context, name ...string) *gorm.DB {
	db, ok := Lookup(name...)
	if ok {
		return db.WithContext(ctx)
	}
	panic(fmt.Sprintf("db %s not registered", nameOf(name)))
}

// Lookup 未注册时返回 false
func Lookup(name ...string) (*gorm.DB, bool) {
	mu.RLock()
	defer mu.RUnlock()
	db, ok := dbs[nameOf(name)]
	return db, ok
}

// Close 关闭所有连接
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	var first error
	for name, db := range dbs {
		if d, err := db.DB(); err == nil {
			if err := d.Close(); err != nil && first == nil {
				first = err
			}
		}
		delete(dbs, name)
	}
	return first
}

func nameOf(name []string) string {
	if len(name) == 0 || name[0] == "" {
		return defaultName
	}
	return name[0]
}

// Option 数据库的一些配置
type Option func(*gorm.DB) error

func WithMaxOpenConns(n int) Option {
	return func(db *gorm.DB) error {
		d, err := db.DB()
		if err != nil {
			return err
		}
		d.SetMaxOpenConns(n)
		return nil
	}
}

func WithMaxIdleConns(n int) Option {
	return func(db *gorm.DB) error {
		d, err := db.DB()
		if err != nil {
			return err
		}
		d.SetMaxIdleConns(n)
		return nil
	}
}

func WithConnMaxIdleTime(n time.Duration) Option {
	return func(db *gorm.DB) error {
		d, err := db.DB()
		if err != nil {
			return err
		}
		d.SetConnMaxIdleTime(n)
		return nil
	}
}

func WithAutoMigrate(dst ...any) Option {
	return func(d *gorm.DB) error {
		return d.AutoMigrate(dst...)
	}
}
