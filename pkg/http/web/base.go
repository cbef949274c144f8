package web

import (
	"context"
	"reflect"

	"github.com/gin-gonic/gin"
)

// Handler ginhandler包裹器 负责将rpc模式转为gin handler
type Handler func(any) gin.HandlerFunc

// Empty 无请求参数
type Empty struct{}

var (
	rtypeEmpty   = reflect.TypeOf(Empty{})
	rtypeContext = reflect.TypeOf((*context.Context)(nil)).Elem()
	rtypeError   = reflect.TypeOf((*error)(nil)).Elem()
)
