// Package template compiles Lambda invoke permissions for external SNS topics
// into a CloudFormation resource fragment. Resource ids are deterministic so
// re-compilation overwrites entries instead of duplicating them.
package template

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/topicbind/topicbind/internal/constants"
)

// Resource is one declarative template entry.
type Resource struct {
	Type       string               `json:"Type"`
	Properties PermissionProperties `json:"Properties"`
}

// PermissionProperties are the fields of an AWS::Lambda::Permission resource.
// SourceArn is an Fn::Join intrinsic composed from the current region and
// account placeholders plus the literal topic name.
type PermissionProperties struct {
	FunctionName string `json:"FunctionName"`
	Action       string `json:"Action"`
	Principal    string `json:"Principal"`
	SourceArn    any    `json:"SourceArn"`
}

// Template accumulates permission resources keyed by their synthesized ids.
// Writes are last-write-wins per key, which makes repeated compilation runs
// idempotent.
type Template struct {
	Resources map[string]Resource
}

// New returns an empty template accumulator.
func New() *Template {
	return &Template{Resources: make(map[string]Resource)}
}

// Put inserts or overwrites a resource entry.
func (t *Template) Put(id string, r Resource) {
	t.Resources[id] = r
}

// Len returns the number of accumulated resources.
func (t *Template) Len() int {
	return len(t.Resources)
}

// Body renders the template as a deployable CloudFormation JSON document.
func (t *Template) Body() (string, error) {
	doc := map[string]any{
		"AWSTemplateFormatVersion": "2010-09-09",
		"Description":              fmt.Sprintf("Lambda invoke permissions for external SNS topics (managed by %s)", constants.ProjectName),
		"Resources":                t.Resources,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling template: %w", err)
	}
	return string(data), nil
}

// WriteFile writes the rendered template to path.
func (t *Template) WriteFile(path string) error {
	body, err := t.Body()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(body+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing template %s: %w", path, err)
	}
	return nil
}

// PermissionID synthesizes the deterministic resource id for a
// (function, topic) pair. Same inputs always produce the same id.
func PermissionID(functionName, topicName string) string {
	return NormalizeName(functionName) + "LambdaPermission" + NormalizeName(topicName)
}

// CompilePermission produces the permission resource granting the SNS service
// principal invoke rights on deployedName for messages from the named topic.
// deployedName is the function's physical name, resolvable at apply time.
func CompilePermission(deployedName, topicName string) Resource {
	return Resource{
		Type: "AWS::Lambda::Permission",
		Properties: PermissionProperties{
			FunctionName: deployedName,
			Action:       constants.LambdaInvokeAction,
			Principal:    constants.SNSServicePrincipal,
			SourceArn: map[string]any{
				"Fn::Join": []any{"", []any{
					constants.SNSArnPrefix + ":",
					map[string]string{"Ref": "AWS::Region"},
					":",
					map[string]string{"Ref": "AWS::AccountId"},
					":",
					topicName,
				}},
			},
		},
	}
}

// NormalizeName strips non-alphanumeric runes and capitalizes the first
// remaining one, producing a collision-safe template identifier fragment.
// Empty input normalizes to the empty string.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	runes := []rune(b.String())
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
