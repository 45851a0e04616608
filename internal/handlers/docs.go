package handlers

import (
	"net/http"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/charismamove/apiserver/internal/export"
)

const (
	apiTitle   = "CharismaMove API"
	apiVersion = "1.0.0"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	pathParamRe = regexp.MustCompile(`\{([^}]+)\}`)
)

// Document is an OpenAPI document.
type Document map[string]any

// OpenAPI builds an OpenAPI 3.0 document describing routes.
func OpenAPI(routes []Route) Document {
	schemas := map[string]any{}
	schemaRef(reflect.TypeOf(ErrorResponse{}), schemas)

	paths := map[string]any{}
	for _, route := range routes {
		item, ok := paths[route.Pattern].(map[string]any)
		if !ok {
			item = map[string]any{}
			paths[route.Pattern] = item
		}
		item[strings.ToLower(route.Method)] = operation(route, schemas)
	}

	tags := lo.Map(lo.Uniq(lo.Map(routes, func(r Route, _ int) string { return r.Tag })),
		func(tag string, _ int) map[string]any { return map[string]any{"name": tag} })

	return Document{
		"openapi": "3.0.0",
		"info": map[string]any{
			"title":       apiTitle,
			"version":     apiVersion,
			"description": "Carpooling marketplace API",
		},
		"tags":  tags,
		"paths": paths,
		"components": map[string]any{
			"schemas": schemas,
			"securitySchemes": map[string]any{
				"bearerAuth": map[string]any{
					"type":         "http",
					"scheme":       "bearer",
					"bearerFormat": "JWT",
				},
			},
		},
	}
}

func operation(route Route, schemas map[string]any) map[string]any {
	op := map[string]any{
		"summary":     route.Summary,
		"tags":        []string{route.Tag},
		"operationId": operationID(route),
	}

	params := lo.Map(pathParamRe.FindAllStringSubmatch(route.Pattern, -1), func(m []string, _ int) map[string]any {
		return map[string]any{
			"name":     m[1],
			"in":       "path",
			"required": true,
			"schema":   map[string]any{"type": "integer"},
		}
	})
	for _, q := range route.Query {
		params = append(params, map[string]any{
			"name":        q.Name,
			"in":          "query",
			"description": q.Description,
			"schema":      map[string]any{"type": q.Type},
		})
	}
	if len(params) > 0 {
		op["parameters"] = params
	}

	if route.Request != nil {
		op["requestBody"] = map[string]any{
			"required": true,
			"content": map[string]any{
				"application/json": map[string]any{"schema": schemaRef(reflect.TypeOf(route.Request), schemas)},
			},
		}
	}

	responses := map[string]any{}
	success := map[string]any{"description": http.StatusText(route.Status)}
	switch {
	case route.Response != nil:
		success["content"] = map[string]any{
			"application/json": map[string]any{"schema": schemaRef(reflect.TypeOf(route.Response), schemas)},
		}
	case route.Status == http.StatusOK:
		success["content"] = map[string]any{
			export.ContentTypeXLSX: map[string]any{
				"schema": map[string]any{"type": "string", "format": "binary"},
			},
		}
	}
	responses[strconv.Itoa(route.Status)] = success
	for _, code := range route.Errors {
		responses[strconv.Itoa(code)] = map[string]any{
			"description": http.StatusText(code),
			"content": map[string]any{
				"application/json": map[string]any{"schema": map[string]any{"$ref": "#/components/schemas/ErrorResponse"}},
			},
		}
	}
	op["responses"] = responses

	if route.Access != Public {
		op["security"] = []map[string]any{{"bearerAuth": []string{}}}
	}
	return op
}

func operationID(route Route) string {
	parts := strings.FieldsFunc(route.Pattern, func(r rune) bool {
		return r == '/' || r == '{' || r == '}'
	})
	parts = lo.Filter(parts, func(p string, _ int) bool { return p != "api" })
	return strings.ToLower(route.Method) + strings.Join(lo.Map(parts, func(p string, _ int) string {
		return strings.ToUpper(p[:1]) + p[1:]
	}), "")
}

// schemaRef returns an inline schema for scalars and arrays and a $ref for
// named structs, registering them in schemas.
func schemaRef(t reflect.Type, schemas map[string]any) map[string]any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch {
	case t == timeType:
		return map[string]any{"type": "string", "format": "date-time"}
	case t.Kind() == reflect.Struct:
		name := t.Name()
		if _, ok := schemas[name]; !ok {
			// Reserve the name first so recursive types terminate.
			schemas[name] = map[string]any{}
			schemas[name] = objectSchema(t, schemas)
		}
		return map[string]any{"$ref": "#/components/schemas/" + name}
	case t.Kind() == reflect.Slice || t.Kind() == reflect.Array:
		return map[string]any{"type": "array", "items": schemaRef(t.Elem(), schemas)}
	case t.Kind() == reflect.Map:
		return map[string]any{"type": "object", "additionalProperties": schemaRef(t.Elem(), schemas)}
	case t.Kind() == reflect.Bool:
		return map[string]any{"type": "boolean"}
	case t.Kind() >= reflect.Int && t.Kind() <= reflect.Uint64:
		return map[string]any{"type": "integer"}
	case t.Kind() == reflect.Float32 || t.Kind() == reflect.Float64:
		return map[string]any{"type": "number"}
	default:
		return map[string]any{"type": "string"}
	}
}

func objectSchema(t reflect.Type, schemas map[string]any) map[string]any {
	properties := map[string]any{}
	var required []string
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			continue
		}
		prop := schemaRef(field.Type, schemas)
		if field.Type.Kind() == reflect.Pointer {
			if _, isRef := prop["$ref"]; !isRef {
				prop["nullable"] = true
			}
		} else if !strings.Contains(opts, "omitempty") {
			required = append(required, name)
		}
		properties[name] = prop
	}

	schema := map[string]any{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// DocsRouter serves the API reference: an HTML viewer at the root and the
// document as JSON and YAML.
func DocsRouter(r chi.Router, routes []Route) {
	doc := OpenAPI(routes)

	r.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, doc)
	})
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		out, err := yaml.Marshal(map[string]any(doc))
		if err != nil {
			writeInternalError(w, r, err, "failed to render document")
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(out)
	})
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(docsPage))
	})
}

const docsPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>` + apiTitle + `</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = function () {
      SwaggerUIBundle({ url: "/api-docs/openapi.json", dom_id: "#swagger-ui" });
    };
  </script>
</body>
</html>
`
