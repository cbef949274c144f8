package oas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"gopkg.in/yaml.v3"
)

// Object 保持声明顺序的 JSON/YAML 对象
// 上传的文档按原始顺序展示 并且模板匹配按声明顺序进行
type Object struct {
	keys   []string
	values map[string]any
}

func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Keys 按声明顺序返回所有的key
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

func (o *Object) Get(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Set 新key追加到末尾 已存在的key保持原位置
func (o *Object) Set(key string, value any) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Clone 浅拷贝
func (o *Object) Clone() *Object {
	if o == nil {
		return nil
	}
	c := &Object{
		keys:   make([]string, len(o.keys)),
		values: make(map[string]any, len(o.values)),
	}
	copy(c.keys, o.keys)
	for k, v := range o.values {
		c.values[k] = v
	}
	return c
}

// Equal lets go-cmp compare decoded documents.
func (o *Object) Equal(other *Object) bool {
	return reflect.DeepEqual(o, other)
}

func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Object) UnmarshalJSON(b []byte) error {
	v, err := Decode(b)
	if err != nil {
		return err
	}
	obj, ok := v.(*Object)
	if !ok {
		return fmt.Errorf("%w: expected object, got %T", ErrUnparseable, v)
	}
	*o = *obj
	return nil
}

// 别名展开后的节点上限 按输入大小放宽 防止嵌套锚点指数膨胀
const (
	minDecodeNodes  = 10000
	decodeNodeRatio = 16
	maxDecodeNodes  = 4 << 20
)

var (
	errAliasCycle  = errors.New("alias cycle")
	errTooManyNode = errors.New("document expands to too many nodes")
)

// Decode 解析 JSON 或 YAML 数据
// 对象解析为 *Object 数组为 []any 其余为标量
func Decode(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrUnparseable)
	}
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	d := &decoder{
		budget: min(minDecodeNodes+decodeNodeRatio*len(data), maxDecodeNodes),
		active: make(map[*yaml.Node]bool),
	}
	v, err := d.node(&root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	return v, nil
}

// decoder yaml.Node 不做别名检查 这里自己处理循环引用和展开数量
type decoder struct {
	budget int
	// 当前路径上正在展开的对象和数组
	active map[*yaml.Node]bool
}

func (d *decoder) node(n *yaml.Node) (any, error) {
	if d.budget--; d.budget < 0 {
		return nil, errTooManyNode
	}
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return d.node(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil || d.active[n.Alias] {
			return nil, errAliasCycle
		}
		return d.node(n.Alias)
	case yaml.MappingNode:
		d.active[n] = true
		defer delete(d.active, n)
		obj := NewObject()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			// merge key `<<` 在OpenAPI中不常见 按普通key处理
			val, err := d.node(v)
			if err != nil {
				return nil, err
			}
			obj.Set(k.Value, val)
		}
		return obj, nil
	case yaml.SequenceNode:
		d.active[n] = true
		defer delete(d.active, n)
		list := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := d.node(c)
			if err != nil {
				return nil, err
			}
			list = append(list, val)
		}
		return list, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("unsupported yaml node kind %d", n.Kind)
}

// FirstPresent 按优先级依次查找 返回第一个存在且非空的值
func FirstPresent(o *Object, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := o.Get(k); ok && truthy(v) {
			return v, true
		}
	}
	return nil, false
}

// String returns v as a string when it is a scalar.
func String(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *Object, []any:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// Number returns numeric scalars as float64.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func Bool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

// truthy 空值 false 0 和空字符串视为不存在
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case *Object:
		return x != nil
	}
	if n, ok := Number(v); ok {
		return n != 0
	}
	return true
}
