// Package info 编译信息
package info

import "runtime/debug"

// Version 返回 vcs.revision 有未提交修改时追加 -dirty
// 非 go build 编译时返回空字符串
func Version() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var rev string
	var dirty bool
	for _, v := range bi.Settings {
		switch v.Key {
		case "vcs.revision":
			rev = v.Value
		case "vcs.modified":
			dirty = v.Value == "true"
		}
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}
