package oas

import (
	"regexp"
	"strings"
)

// placeholder { 与其后第一个 } 之间至少一个字符
// 不成对的 { } 按普通字符处理
var placeholder = regexp.MustCompile(`\{[^}]+\}`)

// templateMatcher 预编译的路径模板匹配器
// {name} 匹配一个或多个非 / 字符 整体首尾锚定
type templateMatcher struct {
	re  *regexp.Regexp
	err error
}

func compileTemplate(tpl string) *templateMatcher {
	re, err := regexp.Compile(templateExpr(tpl))
	if err != nil {
		return &templateMatcher{err: err}
	}
	return &templateMatcher{re: re}
}

func templateExpr(tpl string) string {
	var b strings.Builder
	b.WriteByte('^')
	last := 0
	for _, loc := range placeholder.FindAllStringIndex(tpl, -1) {
		b.WriteString(regexp.QuoteMeta(tpl[last:loc[0]]))
		b.WriteString(`[^/]+`)
		last = loc[1]
	}
	b.WriteString(regexp.QuoteMeta(tpl[last:]))
	b.WriteByte('$')
	return b.String()
}

// Valid reports whether the template compiled; invalid templates never match.
func (m *templateMatcher) Valid() bool {
	return m != nil && m.re != nil
}

func (m *templateMatcher) Match(path string) bool {
	if !m.Valid() {
		return false
	}
	return m.re.MatchString(path)
}
