package web

import (
	"fmt"
	"io"
	"net/http"
	"reflect"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/gin-gonic/gin"
)

type Router interface {
	// rpc模式路由方法
	// handler 支持rpc方法和gin.HandleFunc(为了支持gin中间件)
	Get(path string, handler ...any) Commenter
	Post(path string, handler ...any) Commenter
	Put(path string, handler ...any) Commenter
	Patch(path string, handler ...any) Commenter
	Delete(path string, handler ...any) Commenter
	Handle(method, path string, handler ...any) Commenter
	// 同gin
	Use(handler ...gin.HandlerFunc) Router
	Group(path string, handler ...gin.HandlerFunc) GroupCommenter
}

// Commenter 路由备注 第一行作为文档的summary
type Commenter interface {
	Comment(string)
}

type GroupCommenter interface {
	Commenter
	Router
}

type route struct {
	opt      *option
	basepath string
	r        gin.IRoutes
	info     *routeInfo
}

func (s *route) Get(path string, handler ...any) Commenter {
	return s.Handle(http.MethodGet, path, handler...)
}

func (s *route) Post(path string, handler ...any) Commenter {
	return s.Handle(http.MethodPost, path, handler...)
}

func (s *route) Put(path string, handler ...any) Commenter {
	return s.Handle(http.MethodPut, path, handler...)
}

func (s *route) Patch(path string, handler ...any) Commenter {
	return s.Handle(http.MethodPatch, path, handler...)
}

func (s *route) Delete(path string, handler ...any) Commenter {
	return s.Handle(http.MethodDelete, path, handler...)
}

func (s *route) Comment(c string) {
	if s.info != nil {
		s.info.comment = c
	}
}

func (s *route) Use(handler ...gin.HandlerFunc) Router {
	s2 := *s
	s2.r = s.r.Use(handler...)
	return &s2
}

func (s *route) Group(path string, handler ...gin.HandlerFunc) GroupCommenter {
	r := s.r.(gin.IRouter).Group(path, handler...)
	return &route{
		opt:      s.opt,
		r:        r,
		basepath: r.BasePath(),
		info:     s.opt.routes.addGroup(r.BasePath()),
	}
}

// Handle 只允许一个rpc handler 放在最后
func (s *route) Handle(method, path string, handler ...any) Commenter {
	if strings.Contains(path, "*") {
		panic("rpc handler not support *path")
	}
	hs := make([]gin.HandlerFunc, len(handler))
	var info *routeInfo
	for i, h := range handler {
		switch fn := h.(type) {
		case gin.HandlerFunc:
			hs[i] = fn
		case func(*gin.Context):
			hs[i] = fn
		default:
			if info != nil {
				panic("handle only support one rpc handler")
			}
			// 添加到路由信息表 为了自动生成doc
			info = s.opt.routes.addRoute(s.basepath, path, h, method)
			hs[i] = handleWarpf(s.opt)(h)
		}
	}
	s.r.Handle(method, path, hs...)
	return &route{info: info}
}

type routeInfo struct {
	isDir    bool
	basePath string
	path     string
	comment  string
	// handle only
	pcName  string
	method  string
	funType reflect.Type
	// dir only
	children Routes
}

// fullPath gin 格式的完整路径
func (r *routeInfo) fullPath() string {
	if r.basePath == "" || r.basePath == "/" {
		return r.path
	}
	if r.path == "" {
		return r.basePath
	}
	return strings.TrimRight(r.basePath, "/") + "/" + strings.TrimLeft(r.path, "/")
}

type Routes []*routeInfo

func (r *Routes) addRoute(basepath, path string, h any, method string) *routeInfo {
	info := &routeInfo{
		path:     path,
		basePath: basepath,
		pcName:   runtime.FuncForPC(reflect.ValueOf(h).Pointer()).Name(),
		method:   method,
		funType:  reflect.TypeOf(h),
	}
	if basepath != "" && basepath != "/" {
		for _, v := range *r {
			if v.isDir && v.basePath == basepath {
				v.children = append(v.children, info)
				return info
			}
		}
	}
	*r = append(*r, info)
	return info
}

func (r *Routes) addGroup(path string) *routeInfo {
	for _, v := range *r {
		if v.isDir && v.basePath == path {
			return v
		}
	}
	info := &routeInfo{
		isDir:    true,
		basePath: path,
		children: make(Routes, 0),
	}
	*r = append(*r, info)
	return info
}

// each 按注册顺序遍历所有handler
func (r Routes) each(f func(group *routeInfo, h *routeInfo)) {
	for _, v := range r {
		if !v.isDir {
			f(nil, v)
			continue
		}
		for _, h := range v.children {
			f(v, h)
		}
	}
}

func (r Routes) echo(out io.Writer) {
	if out == nil {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.DiscardEmptyColumns)
	for _, v := range r {
		if v.isDir {
			if len(v.children) == 0 {
				continue
			}
			fmt.Fprintf(w, "[router]├── %s\t\t\t%s\n", v.basePath, v.comment)
			for _, h := range v.children {
				fmt.Fprintf(w, "[router]│   └── %s\t%s\t%s\t%s\n", h.path, h.method, h.pcName, h.comment)
			}
		} else {
			fmt.Fprintf(w, "[router]├── %s\t%s\t%s\t%s\n", v.path, v.method, v.pcName, v.comment)
		}
	}
	w.Flush()
}
