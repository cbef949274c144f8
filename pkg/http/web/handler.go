package web

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/parkingwang/flowprobe/pkg/http/code"
)

var errHandleType = errors.New("rpc handle must func(ctx context.Context, in *struct)(out *T, err error) type")

// checkHandleValid 返回值数量和是否合法
// 一个返回值的话 必须是error
// 两个返回值 最后一个一定是error 第一个为指针/切片/map
func checkHandleValid(tp reflect.Type) (int, bool) {
	if tp.Kind() != reflect.Func {
		return 0, false
	}
	if !(tp.NumIn() == 2 &&
		tp.In(0) == rtypeContext &&
		tp.In(1).Kind() == reflect.Pointer &&
		tp.In(1).Elem().Kind() == reflect.Struct) {
		return 0, false
	}
	switch n := tp.NumOut(); n {
	case 1:
		return 1, tp.Out(0) == rtypeError
	case 2:
		switch tp.Out(0).Kind() {
		case reflect.Pointer, reflect.Slice, reflect.Map:
			return 2, tp.Out(1) == rtypeError
		}
		return 2, false
	default:
		return n, false
	}
}

var valider = func() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding") // 兼容gin
	return v
}()

func handleWarpf(opt *option) Handler {
	return func(iface any) gin.HandlerFunc {
		tp := reflect.TypeOf(iface)
		numOut, ok := checkHandleValid(tp)
		if !ok {
			panic(fmt.Errorf("%w: got %s", errHandleType, tp))
		}
		method := reflect.ValueOf(iface)
		reqParamsType := tp.In(1).Elem()

		tags := make(map[string]bool)
		deepfindTags(reqParamsType, tags)

		return func(ctx *gin.Context) {
			q := reflect.New(reqParamsType)
			if reqParamsType != rtypeEmpty {
				err := checkReqParam(ctx, q.Interface(), tags)
				if opt.dumpRequestBody {
					// 输出请求体
					slog.InfoContext(ctx, "gin.dumpRequest", slog.String("data", fmt.Sprintf("%+v", q.Elem())))
				}
				if err == nil {
					err = valider.Struct(q.Interface())
				}
				if err != nil {
					warpRender(opt, ctx, nil, code.NewBadRequestError(err))
					return
				}
			}

			ret := method.Call([]reflect.Value{reflect.ValueOf(ctx), q})
			if e := ret[numOut-1].Interface(); e != nil {
				warpRender(opt, ctx, nil, e.(error))
				return
			}
			// 只返回error时 输出204
			var out any
			if numOut == 2 {
				out = ret[0].Interface()
			}
			warpRender(opt, ctx, out, nil)
		}
	}
}
