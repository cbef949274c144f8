package oas

// Spec flowprobe 自身对外发布的 OpenAPI 文档
type Spec struct {
	Openapi string                               `json:"openapi"`
	Info    DocInfo                              `json:"info"`
	Servers []Server                             `json:"servers,omitempty"`
	Tags    []Tag                                `json:"tags,omitempty"`
	Paths   map[string]map[string]*SpecOperation `json:"paths"`
}

type Server struct {
	URL string `json:"url"`
}

type Tag struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type DocInfo struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Version     string `json:"version"`
}

// SpecOperation 单个接口的描述
type SpecOperation struct {
	Tags        []string        `json:"tags,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	OperationID string          `json:"operationId"`
	Parameters  []SpecParameter `json:"parameters,omitempty"`
	RequestBody *Body           `json:"requestBody,omitempty"`
	Responses   map[string]Body `json:"responses"`
}

type SpecParameter struct {
	Name        string  `json:"name"`
	In          string  `json:"in"`
	Description string  `json:"description,omitempty"`
	Required    bool    `json:"required"`
	Schema      *Schema `json:"schema,omitempty"`
}

type Body struct {
	Description string               `json:"description,omitempty"`
	Required    bool                 `json:"required,omitempty"`
	Content     map[string]MediaBody `json:"content,omitempty"`
}

type MediaBody struct {
	Schema *Schema `json:"schema"`
}

func NewSpec(info DocInfo) *Spec {
	return &Spec{
		Openapi: "3.0.3",
		Info:    info,
		Tags:    make([]Tag, 0),
		Paths:   make(map[string]map[string]*SpecOperation),
	}
}
