package config

import (
	"io"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀 app.log.debug 对应 FLOWPROBE_APP_LOG_DEBUG
const EnvPrefix = "FLOWPROBE"

type Provider interface {
	GetString(key string) string
	GetInt(key string) int
	GetInt64(key string) int64
	GetFloat64(key string) float64
	GetDuration(key string) time.Duration
	GetBool(key string) bool
	GetStringMap(key string) map[string]any
	GetStringSlice(key string) []string
	Get(key string) any
	Set(key string, value any)
	SetDefault(key string, value any)
	IsSet(key string) bool

	// Child 子配置 key不存在时返回空配置 不会返回nil
	Child(key string) Provider
	Decode(key string, value any) error
}

// LoadConfig 读取配置文件 path为空时只读取环境变量
func LoadConfig(path string) (Provider, error) {
	p := newViper()
	if path != "" {
		p.SetConfigFile(path)
		if err := p.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return &defaultProvider{v: p}, nil
}

// LoadConfigReader 从reader读取 typ 如 yaml json
func LoadConfigReader(r io.Reader, typ string) (Provider, error) {
	p := newViper()
	p.SetConfigType(typ)
	if err := p.ReadConfig(r); err != nil {
		return nil, err
	}
	return &defaultProvider{v: p}, nil
}

func newViper() *viper.Viper {
	p := viper.New()
	p.SetEnvPrefix(EnvPrefix)
	p.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	p.AutomaticEnv()
	return p
}

// defaultProvider 子配置共享同一个viper 只在key前加前缀
// viper.Sub 会丢失环境变量的覆盖
type defaultProvider struct {
	v      *viper.Viper
	prefix string
}

func (p *defaultProvider) key(k string) string {
	if p.prefix == "" {
		return k
	}
	if k == "" {
		return strings.TrimSuffix(p.prefix, ".")
	}
	return p.prefix + k
}

func (p *defaultProvider) GetString(k string) string          { return p.v.GetString(p.key(k)) }
func (p *defaultProvider) GetInt(k string) int                { return p.v.GetInt(p.key(k)) }
func (p *defaultProvider) GetInt64(k string) int64            { return p.v.GetInt64(p.key(k)) }
func (p *defaultProvider) GetFloat64(k string) float64        { return p.v.GetFloat64(p.key(k)) }
func (p *defaultProvider) GetDuration(k string) time.Duration { return p.v.GetDuration(p.key(k)) }
func (p *defaultProvider) GetBool(k string) bool              { return p.v.GetBool(p.key(k)) }
func (p *defaultProvider) GetStringMap(k string) map[string]any {
	return p.v.GetStringMap(p.key(k))
}
func (p *defaultProvider) GetStringSlice(k string) []string { return p.v.GetStringSlice(p.key(k)) }
func (p *defaultProvider) Get(k string) any                 { return p.v.Get(p.key(k)) }
func (p *defaultProvider) Set(k string, value any)          { p.v.Set(p.key(k), value) }
func (p *defaultProvider) SetDefault(k string, value any)   { p.v.SetDefault(p.key(k), value) }
func (p *defaultProvider) IsSet(k string) bool              { return p.v.IsSet(p.key(k)) }

func (p *defaultProvider) Child(k string) Provider {
	return &defaultProvider{v: p.v, prefix: p.key(k) + "."}
}

func (p *defaultProvider) Decode(k string, value any) error {
	return p.v.UnmarshalKey(p.key(k), value)
}
