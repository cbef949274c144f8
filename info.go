// Package flowprobe 应用骨架 负责配置 日志 trace 存储和服务生命周期
package flowprobe

import "github.com/parkingwang/flowprobe/internal/info"

type AppInfo struct {
	// app name
	Name string
	// 描述
	Description string
	// 版本号 为空时使用 vcs.revision
	Version string
}

func (i AppInfo) withDefaults() AppInfo {
	if i.Name == "" {
		i.Name = "flowprobe"
	}
	if i.Version == "" {
		i.Version = info.Version()
	}
	if i.Version == "" {
		i.Version = "dev"
	}
	return i
}
