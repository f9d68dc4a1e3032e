package nodedefs

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"
)

// Registry is a live definition source built from a provider's OpenAPI
// document: every operation with an operationId becomes a
// {provider}_{operation} definition.
type Registry struct {
	defs map[string]*Definition
}

// LoadOpenAPI parses and validates an OpenAPI document and builds a Registry
// from it.
func LoadOpenAPI(ctx context.Context, provider string, spec []byte) (*Registry, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx

	doc, err := loader.LoadFromData(spec)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec for %s: %w", provider, err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi spec for %s: %w", provider, err)
	}
	return FromDocument(provider, doc)
}

// FromDocument builds a Registry from an already-loaded OpenAPI document.
func FromDocument(provider string, doc *openapi3.T) (*Registry, error) {
	if provider == "" {
		return nil, fmt.Errorf("openapi registry requires a provider name")
	}

	defs := make(map[string]*Definition)
	if doc.Paths != nil {
		for path, item := range doc.Paths.Map() {
			for method, op := range item.Operations() {
				if op.OperationID == "" {
					continue
				}

				def := &Definition{
					Type: provider + "_" + snakeCase(op.OperationID),
					Request: RequestTemplate{
						Method:       method,
						PathTemplate: path,
					},
				}

				for _, ref := range op.Parameters {
					if ref.Value == nil {
						continue
					}
					param := ref.Value
					if param.In == openapi3.ParameterInQuery {
						if def.Request.Query == nil {
							def.Request.Query = make(map[string]string)
						}
						def.Request.Query[param.Name] = "{" + param.Name + "}"
					}
				}

				def.ResponseMapping = responseMapping(op)
				defs[def.Type] = def
			}
		}
	}

	return &Registry{defs: defs}, nil
}

// Lookup implements Resolver.
func (r *Registry) Lookup(nodeType string) (*Definition, bool) {
	def, ok := r.defs[nodeType]
	return def, ok
}

// Types returns every node type the registry defines.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.defs))
	for t := range r.defs {
		types = append(types, t)
	}
	return types
}

// responseMapping maps the top-level properties of the operation's 200
// response schema to themselves, so dynamic outputs mirror the documented
// response shape.
func responseMapping(op *openapi3.Operation) map[string]string {
	if op.Responses == nil {
		return nil
	}
	ref := op.Responses.Status(200)
	if ref == nil || ref.Value == nil {
		return nil
	}
	media := ref.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}
	props := media.Schema.Value.Properties
	if len(props) == 0 {
		return nil
	}
	mapping := make(map[string]string, len(props))
	for name := range props {
		mapping[name] = name
	}
	return mapping
}

// snakeCase converts an operationId like "getWalletSummary" to
// "get_wallet_summary".
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '-' || r == ' ' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
