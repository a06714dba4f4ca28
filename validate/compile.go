package validate

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"sync"

	"github.com/invopop/jsonschema"
	"github.com/reoring/goskema"
	"github.com/reoring/goskema/dsl"
	js "github.com/reoring/goskema/jsonschema"
)

var patternCache sync.Map

// Compile translates schema into a goskema schema over loosely typed values.
// Scalars are coerced the way stored settings need (0/1 and "true" for
// booleans, numeric strings for numbers); arrays and objects report every
// failing member instead of stopping at the first one.
func Compile(schema *jsonschema.Schema) goskema.Schema[any] {
	return compile(schema)
}

// node is one compiled schema. The zero node accepts anything.
type node struct {
	kind       string
	forbidden  bool
	enum       []any
	pattern    string
	format     string
	items      *node
	properties map[string]*node
	order      []string
	required   []string
	additional *node
}

func compile(schema *jsonschema.Schema) *node {
	switch schema {
	case nil, jsonschema.TrueSchema:
		return &node{}
	case jsonschema.FalseSchema:
		return &node{forbidden: true}
	}
	n := &node{
		kind:     schema.Type,
		enum:     slices.Clone(schema.Enum),
		pattern:  schema.Pattern,
		format:   schema.Format,
		required: slices.Clone(schema.Required),
		items:    compile(schema.Items),
	}
	if schema.AdditionalProperties != nil {
		n.additional = compile(schema.AdditionalProperties)
	}
	if schema.Properties != nil {
		n.properties = make(map[string]*node, schema.Properties.Len())
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			n.properties[pair.Key] = compile(pair.Value)
			n.order = append(n.order, pair.Key)
		}
	}
	return n
}

func (n *node) Parse(ctx context.Context, v any) (any, error) {
	var issues goskema.Issues
	out := n.parse(ctx, v, root(), &issues)
	if len(issues) > 0 {
		return nil, issues
	}
	return out, nil
}

func (n *node) ParseWithMeta(ctx context.Context, v any) (goskema.Decoded[any], error) {
	out, err := n.Parse(ctx, v)
	return goskema.Decoded[any]{Value: out, Presence: goskema.PresenceMap{"/": goskema.PresenceSeen}}, err
}

// TypeCheck reports structural issues only.
func (n *node) TypeCheck(ctx context.Context, v any) error {
	return n.check(ctx, v, structural)
}

// RuleCheck reports enum, pattern and format issues only.
func (n *node) RuleCheck(ctx context.Context, v any) error {
	return n.check(ctx, v, func(code string) bool { return !structural(code) })
}

func (n *node) Validate(ctx context.Context, v any) error {
	return n.check(ctx, v, nil)
}

func (n *node) ValidateValue(ctx context.Context, v any) error {
	return n.check(ctx, v, nil)
}

// JSONSchema projects the compiled constraints goskema can describe.
func (n *node) JSONSchema() (*js.Schema, error) {
	switch n.kind {
	case "", "boolean", "integer", "number", "string", "array", "object":
	default:
		return nil, fmt.Errorf("validate: type %q is not supported", n.kind)
	}
	out := &js.Schema{Type: n.kind, Format: n.format, Required: slices.Clone(n.required)}
	if n.kind == "array" {
		items, err := n.items.JSONSchema()
		if err != nil {
			return nil, err
		}
		out.Items = items
	}
	if len(n.order) > 0 {
		out.Properties = make(map[string]*js.Schema, len(n.order))
		for _, name := range n.order {
			prop, err := n.properties[name].JSONSchema()
			if err != nil {
				return nil, err
			}
			out.Properties[name] = prop
		}
	}
	switch {
	case n.additional == nil:
	case n.additional.forbidden:
		out.AdditionalProperties = false
	default:
		additional, err := n.additional.JSONSchema()
		if err != nil {
			return nil, err
		}
		out.AdditionalProperties = additional
	}
	return out, nil
}

func (n *node) check(ctx context.Context, v any, keep func(code string) bool) error {
	var issues goskema.Issues
	n.parse(ctx, v, root(), &issues)
	if keep != nil {
		issues = slices.DeleteFunc(issues, func(issue goskema.Issue) bool { return !keep(issue.Code) })
	}
	if len(issues) == 0 {
		return nil
	}
	return issues
}

// parse appends the issues of value at path and returns its canonical form,
// or value itself when it cannot be converted.
func (n *node) parse(ctx context.Context, value any, at goskema.PathRef, issues *goskema.Issues) any {
	if n.forbidden {
		*issues = goskema.AppendIssues(*issues, at.Issue(goskema.CodeUnknownKey, fmt.Sprintf("%s is not allowed.", label(at))))
		return value
	}

	out := value
	switch n.kind {
	case "":
	case "boolean":
		b, ok := Bool(value)
		if !ok {
			*issues = goskema.AppendIssues(*issues, typeIssue(at, value, "boolean"))
			return value
		}
		out = b
	case "integer":
		i, ok := toInt(value)
		if !ok {
			*issues = goskema.AppendIssues(*issues, typeIssue(at, value, "integer"))
			return value
		}
		out = i
	case "number":
		f, ok := toFloat(value)
		if !ok {
			*issues = goskema.AppendIssues(*issues, typeIssue(at, value, "number"))
			return value
		}
		out = f
	case "string":
		if !goskema.Is(ctx, dsl.String(), value) {
			*issues = goskema.AppendIssues(*issues, typeIssue(at, value, "string"))
			return value
		}
		if issue, ok := n.checkString(value.(string), at); !ok {
			*issues = goskema.AppendIssues(*issues, issue)
			return value
		}
	case "array":
		items, ok := AsSlice(value)
		if !ok {
			*issues = goskema.AppendIssues(*issues, typeIssue(at, value, "array"))
			return value
		}
		parsed := make([]any, len(items))
		for i, item := range items {
			parsed[i] = n.items.parse(ctx, item, at.Index(i), issues)
		}
		out = parsed
	case "object":
		fields, ok := AsMap(value)
		if !ok {
			*issues = goskema.AppendIssues(*issues, typeIssue(at, value, "object"))
			return value
		}
		out = n.parseObject(ctx, fields, at, issues)
	default:
		*issues = goskema.AppendIssues(*issues, at.Issue(
			CodeInvalidSchema,
			fmt.Sprintf("The %q type is not supported.", n.kind),
			"type", n.kind,
		))
		return value
	}

	if len(n.enum) > 0 && !inEnum(value, n.enum) {
		*issues = goskema.AppendIssues(*issues, at.Issue(
			goskema.CodeInvalidEnum,
			fmt.Sprintf("%s is not one of %v.", label(at), n.enum),
			"enum", slices.Clone(n.enum),
			"got", value,
		))
	}
	return out
}

func (n *node) parseObject(ctx context.Context, fields map[string]any, at goskema.PathRef, issues *goskema.Issues) map[string]any {
	for _, name := range n.required {
		if _, ok := fields[name]; !ok {
			*issues = goskema.AppendIssues(*issues, at.Field(name).Issue(
				goskema.CodeRequired,
				fmt.Sprintf("%s is a required property of %s.", name, label(at)),
				"property", name,
			))
		}
	}
	out := make(map[string]any, len(fields))
	for _, name := range sortedKeys(fields) {
		out[name] = n.child(name).parse(ctx, fields[name], at.Field(name), issues)
	}
	return out
}

func (n *node) child(name string) *node {
	if sub, ok := n.properties[name]; ok {
		return sub
	}
	if n.additional != nil {
		return n.additional
	}
	return &node{}
}

func (n *node) checkString(str string, at goskema.PathRef) (goskema.Issue, bool) {
	if n.pattern != "" {
		re, err := compilePattern(n.pattern)
		if err != nil {
			return at.Issue(CodeInvalidSchema, fmt.Sprintf("Invalid pattern %q.", n.pattern), "pattern", n.pattern), false
		}
		if !re.MatchString(str) {
			return at.Issue(
				goskema.CodePattern,
				fmt.Sprintf("%s does not match pattern %s.", label(at), n.pattern),
				"pattern", n.pattern,
				"got", str,
			), false
		}
	}
	if n.format == "uri" && str != "" && !isURI(str) {
		return at.Issue(
			goskema.CodeInvalidFormat,
			fmt.Sprintf("%s is not a valid URI.", label(at)),
			"format", "uri",
			"got", str,
		), false
	}
	return goskema.Issue{}, true
}

func structural(code string) bool {
	switch code {
	case goskema.CodeInvalidType, goskema.CodeRequired, goskema.CodeUnknownKey, CodeInvalidSchema:
		return true
	}
	return false
}

func root() goskema.PathRef {
	return goskema.NewRef(nil).Root()
}

func label(at goskema.PathRef) string {
	if pointer := at.Pointer(); pointer != "/" {
		return pointer
	}
	return "value"
}

func typeIssue(at goskema.PathRef, value any, want string) goskema.Issue {
	return at.Issue(
		goskema.CodeInvalidType,
		fmt.Sprintf("%s is not of type %s.", label(at), want),
		"type", want,
		"got", fmt.Sprintf("%T", value),
	)
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if cached, ok := patternCache.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	patternCache.Store(pattern, re)
	return re, nil
}

func isURI(value string) bool {
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}
