package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/k11techlab/testsmith/codegen"
	"github.com/k11techlab/testsmith/types"
)

// =============================================================================
// 📄 页面对象渲染
// =============================================================================

// FieldSpec 页面对象中一个交互字段的定位方式
type FieldSpec struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Text   string `json:"text,omitempty"`
	Method string `json:"method,omitempty"`
}

// PageObjectSpec 单个页面对象的描述。字段键即生成的方法名。
type PageObjectSpec struct {
	ClassName   string               `json:"className"`
	PackageName string               `json:"package,omitempty"`
	Fields      map[string]FieldSpec `json:"fields"`
}

// PageObjectRequest 页面对象生成请求：单个描述、多个描述，或提示词文件引用
type PageObjectRequest struct {
	PageObjectSpec
	PageObjects []PageObjectSpec `json:"pageObjects,omitempty"`
	PromptFile  string           `json:"promptFile,omitempty"`
}

// PageObject 渲染结果
type PageObject struct {
	ClassName   string `json:"class_name"`
	PackageName string `json:"package_name,omitempty"`
	Source      string `json:"source"`
}

// valueMethods 接收输入值的 Playwright Page 方法
var valueMethods = map[string]bool{
	"fill":         true,
	"type":         true,
	"press":        true,
	"selectOption": true,
}

// actionMethods 不接收输入值的 Playwright Page 方法
var actionMethods = map[string]bool{
	"click":    true,
	"dblclick": true,
	"check":    true,
	"uncheck":  true,
	"hover":    true,
	"focus":    true,
}

const pageObjectTemplate = `{{if .PackageName}}package {{.PackageName}};

{{end}}import com.microsoft.playwright.Page;

public class {{.ClassName}} {
    private final Page page;

    public {{.ClassName}}(Page page) {
        this.page = page;
    }
{{range .Methods}}
    public void {{.Name}}({{if .TakesValue}}String value{{end}}) {
        String selector = null;
{{- range $i, $s := .Selectors}}
        {{if $i}}else {{end}}if (page.querySelector({{quote $s}}) != null) selector = {{quote $s}};
{{- end}}
        if (selector != null) page.{{.Method}}(selector{{if .TakesValue}}, value{{end}});
    }
{{end}}}
`

var pageObjectTmpl = template.Must(template.New("pageobject").
	Funcs(template.FuncMap{"quote": javaString}).
	Parse(pageObjectTemplate))

type methodView struct {
	Name       string
	Method     string
	TakesValue bool
	Selectors  []string
}

type pageObjectView struct {
	ClassName   string
	PackageName string
	Methods     []methodView
}

// RenderPageObject 渲染 Playwright 页面对象类。输出仅取决于 spec，方法按名称排序。
func RenderPageObject(spec PageObjectSpec) (*PageObject, error) {
	if !codegen.IsIdentifier(spec.ClassName) {
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("invalid page object class name %q", spec.ClassName))
	}
	if spec.PackageName != "" && !codegen.IsPackageName(spec.PackageName) {
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("invalid package name %q", spec.PackageName))
	}
	if len(spec.Fields) == 0 {
		return nil, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("page object %s has no fields", spec.ClassName))
	}

	names := make([]string, 0, len(spec.Fields))
	for name := range spec.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	view := pageObjectView{ClassName: spec.ClassName, PackageName: spec.PackageName}
	for _, name := range names {
		m, err := methodFor(name, spec.Fields[name])
		if err != nil {
			return nil, err
		}
		view.Methods = append(view.Methods, m)
	}

	var buf bytes.Buffer
	if err := pageObjectTmpl.Execute(&buf, view); err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to render page object").WithCause(err)
	}
	return &PageObject{ClassName: spec.ClassName, PackageName: spec.PackageName, Source: buf.String()}, nil
}

func methodFor(name string, field FieldSpec) (methodView, error) {
	if !codegen.IsIdentifier(name) {
		return methodView{}, types.NewError(types.ErrInvalidRequest, fmt.Sprintf("invalid field method name %q", name))
	}
	method := field.Method
	if method == "" {
		method = "fill"
	}
	if !valueMethods[method] && !actionMethods[method] {
		return methodView{}, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("unsupported page method %q for field %s", method, name))
	}

	var selectors []string
	if field.ID != "" {
		selectors = append(selectors, "#"+field.ID)
	}
	if field.Name != "" {
		selectors = append(selectors, "input[name='"+field.Name+"']")
	}
	if field.Text != "" {
		selectors = append(selectors, "text="+field.Text)
	}
	if len(selectors) == 0 {
		return methodView{}, types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("field %s needs at least one of id, name or text", name))
	}

	return methodView{
		Name:       name,
		Method:     method,
		TakesValue: valueMethods[method],
		Selectors:  selectors,
	}, nil
}

// RenderPageObjects 渲染请求中的全部页面对象。
// 若请求带 PromptFile，则使用 prompt 中第一个 JSON 对象作为请求。
func (g *Generator) RenderPageObjects(req PageObjectRequest) ([]*PageObject, error) {
	if req.PromptFile != "" {
		content, err := g.LoadPrompt(req.PromptFile)
		if err != nil {
			return nil, err
		}
		fromFile, err := ParsePageObjectPrompt(content)
		if err != nil {
			return nil, err
		}
		req = fromFile
	}

	specs := req.PageObjects
	if len(specs) == 0 {
		if req.ClassName == "" && len(req.Fields) == 0 {
			return nil, types.NewError(types.ErrInvalidRequest, "className and fields, or pageObjects, are required")
		}
		specs = []PageObjectSpec{req.PageObjectSpec}
	}

	out := make([]*PageObject, 0, len(specs))
	for _, spec := range specs {
		po, err := RenderPageObject(spec)
		if err != nil {
			return nil, err
		}
		out = append(out, po)
	}
	return out, nil
}

// ParsePageObjectPrompt 解析提示词文件中的第一个 JSON 对象
func ParsePageObjectPrompt(content string) (PageObjectRequest, error) {
	start := strings.IndexByte(content, '{')
	if start < 0 {
		return PageObjectRequest{}, types.NewError(types.ErrInvalidRequest, "prompt file contains no JSON object")
	}
	var req PageObjectRequest
	dec := json.NewDecoder(strings.NewReader(content[start:]))
	if err := dec.Decode(&req); err != nil {
		return PageObjectRequest{}, types.NewError(types.ErrInvalidRequest, "prompt file JSON is malformed").WithCause(err)
	}
	return req, nil
}

// javaString 渲染 Java 字符串字面量
func javaString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)
	return `"` + r.Replace(s) + `"`
}
