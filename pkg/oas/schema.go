package oas

import (
	"reflect"
	"strings"
	"time"
)

const (
	schemaTypeString = "string"
	schemaTypeBool   = "boolean"
	schemaTypeInt    = "integer"
	schemaTypeNumber = "number"
	schemaTypeObject = "object"
	schemaTypeArray  = "array"

	formatInt32    = "int32"
	formatInt64    = "int64"
	formatFloat    = "float"
	formatDouble   = "double"
	formatDateTime = "date-time"
)

// Schema represents an OpenAPI Schema Object
//
// https://github.com/OAI/OpenAPI-Specification/blob/master/versions/3.0.3.md#schema-object
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Description          string             `json:"description,omitempty"`
	Format               string             `json:"format,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty"`
}

var (
	rtypeTime = reflect.TypeOf(time.Time{})
	// 自定义 JSON 编码的类型 无法通过反射推断结构
	rtypeObject = reflect.TypeOf(Object{})
)

// Generate 根据Go类型生成schema
// tag 为读取字段名的标签 如 json form uri header
func Generate(t reflect.Type, tag string) *Schema {
	g := &generator{tag: tag, seen: make(map[reflect.Type]bool)}
	return g.schema(t)
}

type generator struct {
	tag string
	// 防止自引用类型无限递归
	seen map[reflect.Type]bool
}

func (g *generator) schema(t reflect.Type) *Schema {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: schemaTypeString}
	case reflect.Bool:
		return &Schema{Type: schemaTypeBool}
	case reflect.Int, reflect.Int8, reflect.Int16,
		reflect.Uint, reflect.Uint8, reflect.Uint16:
		return &Schema{Type: schemaTypeInt}
	case reflect.Int32, reflect.Uint32:
		return &Schema{Type: schemaTypeInt, Format: formatInt32}
	case reflect.Int64, reflect.Uint64:
		return &Schema{Type: schemaTypeInt, Format: formatInt64}
	case reflect.Float32:
		return &Schema{Type: schemaTypeNumber, Format: formatFloat}
	case reflect.Float64:
		return &Schema{Type: schemaTypeNumber, Format: formatDouble}
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Schema{Type: schemaTypeString}
		}
		return &Schema{Type: schemaTypeArray, Items: g.schema(t.Elem())}
	case reflect.Map:
		return &Schema{Type: schemaTypeObject, AdditionalProperties: g.schema(t.Elem())}
	case reflect.Struct:
		switch t {
		// RFC3339
		case rtypeTime:
			return &Schema{Type: schemaTypeString, Format: formatDateTime}
		case rtypeObject:
			return &Schema{Type: schemaTypeObject}
		}
		if g.seen[t] {
			return &Schema{Type: schemaTypeObject}
		}
		g.seen[t] = true
		defer delete(g.seen, t)
		s := &Schema{Type: schemaTypeObject, Properties: map[string]*Schema{}}
		g.fields(t, s)
		return s
	}
	// interface 等无法确定类型
	return &Schema{}
}

func (g *generator) fields(t reflect.Type, s *Schema) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				g.fields(ft, s)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		name, ok := f.Tag.Lookup(g.tag)
		if !ok {
			continue
		}
		name = strings.TrimSpace(strings.Split(name, ",")[0])
		if name == "" || name == "-" {
			continue
		}
		p := g.schema(f.Type)
		// 是否有注释？
		if comment := f.Tag.Get("comment"); comment != "" {
			p.Description = comment
		}
		s.Properties[name] = p
		// 是否必填？
		if isRequired(f) {
			s.Required = append(s.Required, name)
		}
	}
}

func isRequired(f reflect.StructField) bool {
	return strings.Split(f.Tag.Get("binding"), ",")[0] == "required"
}
