package web

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/parkingwang/flowprobe/pkg/oas"
)

var contentTypes = map[string]string{
	"json": binding.MIMEJSON,
	"form": binding.MIMEPOSTForm,
}

// ToDoc 根据注册的rpc路由生成 OpenAPI 文档
func (r Routes) ToDoc(info oas.DocInfo) *oas.Spec {
	spec := oas.NewSpec(info)
	r.each(func(group, h *routeInfo) {
		var tags []string
		if group != nil {
			tag := strings.Trim(group.basePath, "/")
			tags = []string{tag}
			if len(spec.Tags) == 0 || spec.Tags[len(spec.Tags)-1].Name != tag {
				spec.Tags = append(spec.Tags, oas.Tag{Name: tag, Description: group.comment})
			}
		}
		path := toOpenAPIPath(h.fullPath())
		item, ok := spec.Paths[path]
		if !ok {
			item = make(map[string]*oas.SpecOperation)
			spec.Paths[path] = item
		}
		item[strings.ToLower(h.method)] = toOperation(h, tags)
	})
	return spec
}

// toOpenAPIPath 将gin的 :xx 替换为openapi的 {xx}
func toOpenAPIPath(path string) string {
	ps := strings.Split(path, "/")
	for i, p := range ps {
		if strings.HasPrefix(p, ":") {
			ps[i] = "{" + p[1:] + "}"
		}
	}
	return strings.Join(ps, "/")
}

func toOperation(h *routeInfo, tags []string) *oas.SpecOperation {
	summary, _, _ := strings.Cut(h.comment, "\n")
	op := &oas.SpecOperation{
		Tags:        tags,
		Summary:     summary,
		OperationID: createOperationID(h),
		Responses: map[string]oas.Body{
			"200": {Description: "Successful operation"},
			"default": {
				Description: "Error",
				Content: map[string]oas.MediaBody{
					binding.MIMEJSON: {Schema: oas.Generate(reflect.TypeOf(DefaultErrorResponse{}), "json")},
				},
			},
		},
	}
	in := h.funType.In(1).Elem()
	if in != rtypeEmpty {
		params, bodyTags := toParameters(h.method, in)
		op.Parameters = params
		if len(bodyTags) > 0 {
			body := &oas.Body{Required: true, Content: make(map[string]oas.MediaBody)}
			for _, tag := range bodyTags {
				body.Content[contentTypes[tag]] = oas.MediaBody{Schema: oas.Generate(in, tag)}
			}
			op.RequestBody = body
		}
	}
	if h.funType.NumOut() == 2 {
		op.Responses["200"] = oas.Body{
			Description: "Successful operation",
			Content: map[string]oas.MediaBody{
				binding.MIMEJSON: {Schema: oas.Generate(h.funType.Out(0), "json")},
			},
		}
	}
	return op
}

// toParameters 返回参数列表和请求体类型 json 优先
func toParameters(method string, in reflect.Type) ([]oas.SpecParameter, []string) {
	var (
		list             []oas.SpecParameter
		hasJSON, hasForm bool
	)
	for i := 0; i < in.NumField(); i++ {
		field := in.Field(i)
		param := oas.SpecParameter{
			Description: field.Tag.Get("comment"),
			Required:    strings.Split(field.Tag.Get("binding"), ",")[0] == "required",
		}
		if v, ok := field.Tag.Lookup("header"); ok {
			param.Name, param.In = v, "header"
			param.Schema = oas.Generate(field.Type, "header")
			list = append(list, param)
		}
		if v, ok := field.Tag.Lookup("uri"); ok {
			param.Name, param.In = v, "path"
			param.Required = true
			param.Schema = oas.Generate(field.Type, "uri")
			list = append(list, param)
		}
		if v, ok := field.Tag.Lookup("form"); ok {
			// 非get 方法 form 会解析为表单
			if method == http.MethodGet {
				param.Name, param.In = v, "query"
				param.Schema = oas.Generate(field.Type, "form")
				list = append(list, param)
			} else {
				hasForm = true
			}
		}
		if _, ok := field.Tag.Lookup("json"); ok && method != http.MethodGet {
			hasJSON = true
		}
	}
	var bodyTags []string
	if hasJSON {
		bodyTags = append(bodyTags, "json")
	}
	if hasForm {
		bodyTags = append(bodyTags, "form")
	}
	return list, bodyTags
}

func createOperationID(r *routeInfo) string {
	ps := strings.FieldsFunc(strings.ReplaceAll(r.fullPath(), ":", ""), func(c rune) bool {
		return c == '/' || c == '-' || c == '_'
	})
	for i, v := range ps {
		ps[i] = strings.ToUpper(v[0:1]) + strings.ToLower(v[1:])
	}
	return strings.ToLower(r.method) + strings.Join(ps, "")
}
