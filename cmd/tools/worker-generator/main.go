// cmd/tools/worker-generator/main.go
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"research-workers/internal/common/validation"
	"research-workers/pkg/registry"
)

type field struct {
	Name     string
	JSON     string
	Type     string
	Required bool
}

type templateData struct {
	registry.Activity
	PackageName     string
	TimeoutExpr     string
	InputFields     []field
	OutputFields    []field
	InputSchemaJSON string
}

var goFiles = map[string]string{
	"config.go":     configTemplate,
	"models.go":     modelsTemplate,
	"validation.go": validationTemplate,
	"handler.go":    handlerTemplate,
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var registryPath, outputDir string
	var force bool

	cmd := &cobra.Command{
		Use:   "worker-generator <activity-id>",
		Short: "Scaffold a job worker package from an activity registry entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Load(registryPath)
			if err != nil {
				return err
			}
			activity, ok := reg.FindByID(args[0])
			if !ok {
				return fmt.Errorf("activity %q not found in %s", args[0], registryPath)
			}
			dir, err := generate(*activity, outputDir, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %s worker in %s\n", activity.TaskType, dir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&registryPath, "registry", "r", registry.DefaultPath, "activity registry file")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "internal/workers", "root directory for worker packages")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing worker package")
	return cmd
}

// generate writes the worker package to <outputDir>/<category>/<id> and
// returns that directory.
func generate(a registry.Activity, outputDir string, force bool) (string, error) {
	if err := validation.ValidateTaskTypeNaming(a.TaskType); err != nil {
		return "", err
	}
	data, err := newTemplateData(a)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(outputDir, a.Category, a.ID)
	if _, err := os.Stat(dir); err == nil && !force {
		return "", fmt.Errorf("%s already exists, use --force to overwrite", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	for name, tmpl := range goFiles {
		out, err := render(name, tmpl, data)
		if err != nil {
			return "", err
		}
		formatted, err := format.Source(out)
		if err != nil {
			return "", fmt.Errorf("generated %s does not parse: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), formatted, 0o644); err != nil {
			return "", err
		}
	}

	readme, err := render("README.md", readmeTemplate, data)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), readme, 0o644); err != nil {
		return "", err
	}
	return dir, nil
}

func render(name, text string, data templateData) ([]byte, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func newTemplateData(a registry.Activity) (templateData, error) {
	timeout := 30 * time.Second
	if a.Timeout != "" {
		d, err := time.ParseDuration(a.Timeout)
		if err != nil {
			return templateData{}, fmt.Errorf("activity %s: invalid timeout %q", a.ID, a.Timeout)
		}
		timeout = d
	}

	schema := a.InputSchema
	if schema == nil {
		schema = map[string]interface{}{"type": "object"}
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return templateData{}, err
	}
	if bytes.ContainsRune(raw, '`') {
		return templateData{}, fmt.Errorf("activity %s: input schema contains a backquote", a.ID)
	}

	return templateData{
		Activity:        a,
		PackageName:     packageName(a.ID),
		TimeoutExpr:     durationExpr(timeout),
		InputFields:     fields(a.InputSchema),
		OutputFields:    fields(a.OutputSchema),
		InputSchemaJSON: string(raw),
	}, nil
}

func packageName(id string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, id)
}

func durationExpr(d time.Duration) string {
	switch {
	case d%time.Minute == 0:
		return fmt.Sprintf("%d * time.Minute", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%d * time.Second", d/time.Second)
	}
	return fmt.Sprintf("%d * time.Millisecond", d/time.Millisecond)
}

func fields(schema map[string]interface{}) []field {
	props, _ := schema["properties"].(map[string]interface{})
	required := map[string]bool{}
	if list, ok := schema["required"].([]interface{}); ok {
		for _, r := range list {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]field, 0, len(names))
	for _, name := range names {
		prop, _ := props[name].(map[string]interface{})
		out = append(out, field{
			Name:     goName(name),
			JSON:     name,
			Type:     goType(prop),
			Required: required[name],
		})
	}
	return out
}

func goType(prop map[string]interface{}) string {
	switch prop["type"] {
	case "string":
		return "string"
	case "integer":
		return "int"
	case "number":
		return "float64"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		if items, ok := prop["items"].(map[string]interface{}); ok {
			return "[]" + goType(items)
		}
		return "[]interface{}"
	}
	return "interface{}"
}

var initialisms = map[string]string{"Id": "ID", "Url": "URL", "Urls": "URLs", "Llm": "LLM"}

// goName turns a camelCase or kebab-case variable name into an exported Go
// identifier.
func goName(name string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = nil
		}
	}
	for _, r := range name {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()

	var b strings.Builder
	for _, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		w = string(rs)
		if v, ok := initialisms[w]; ok {
			w = v
		}
		b.WriteString(w)
	}
	if b.Len() == 0 || unicode.IsDigit([]rune(b.String())[0]) {
		return "Field" + b.String()
	}
	return b.String()
}
