package flowprobe

import "github.com/parkingwang/flowprobe/internal/config"

// SetConfig 加载配置文件 path为空时只使用环境变量
func SetConfig(path string) {
	p, err := config.LoadConfig(path)
	if err != nil {
		panic(err)
	}
	defaultConfig = p
}

var defaultConfig config.Provider

func Conf() config.Provider {
	if defaultConfig == nil {
		panic("default config nil")
	}
	return defaultConfig
}
