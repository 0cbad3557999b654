// Package project loads the function manifest and walks its topic bindings.
// The manifest declares the deployment's functions and their trigger events;
// topicbind only acts on events that reference an externally-owned SNS topic.
package project

import (
	"fmt"
	"os"
	"sort"

	apperrors "github.com/topicbind/topicbind/internal/errors"

	"github.com/topicbind/topicbind/internal/constants"

	"gopkg.in/yaml.v3"
)

// Manifest is the parsed function manifest.
type Manifest struct {
	Service   string               `yaml:"service"`
	Functions map[string]*Function `yaml:"functions"`
}

// Function is one deployable function and its declared trigger events.
// Owned by the deployment configuration; read-only to topicbind.
type Function struct {
	// Name is the manifest key, filled in after parsing.
	Name   string  `yaml:"-"`
	Events []Event `yaml:"events"`
}

// Event is one trigger event declaration. Exactly one field is set.
type Event struct {
	ExternalSNS *TopicBinding `yaml:"externalSNS"`
	HTTP        *HTTPTrigger  `yaml:"http"`
}

// HTTPTrigger declares an HTTP route for a function.
type HTTPTrigger struct {
	Path   string `yaml:"path"`
	Method string `yaml:"method"`
}

// TopicBinding references an externally-owned SNS topic. In YAML it may be a
// bare topic name or a mapping with options; both parse to the same struct.
type TopicBinding struct {
	Topic          string
	Protocol       string
	DeliveryPolicy map[string]any
}

// UnmarshalYAML accepts both binding shapes:
//
//	externalSNS: orders
//	externalSNS:
//	  topic: orders
//	  protocol: lambda
//	  deliveryPolicy: {...}
func (b *TopicBinding) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var topic string
		if err := value.Decode(&topic); err != nil {
			return err
		}
		b.Topic = topic
		return nil
	}

	var raw struct {
		Topic          string         `yaml:"topic"`
		Protocol       string         `yaml:"protocol"`
		DeliveryPolicy map[string]any `yaml:"deliveryPolicy"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	b.Topic = raw.Topic
	b.Protocol = raw.Protocol
	b.DeliveryPolicy = raw.DeliveryPolicy
	return nil
}

// EffectiveProtocol returns the binding's protocol, defaulting to "lambda".
func (b *TopicBinding) EffectiveProtocol() string {
	if b.Protocol == "" {
		return constants.DefaultProtocol
	}
	return b.Protocol
}

// FirstHTTPTrigger returns the function's first declared HTTP trigger, or nil.
func (f *Function) FirstHTTPTrigger() *HTTPTrigger {
	for i := range f.Events {
		if f.Events[i].HTTP != nil {
			return f.Events[i].HTTP
		}
	}
	return nil
}

// TopicBindings returns the function's external topic bindings in declaration order.
func (f *Function) TopicBindings() []*TopicBinding {
	var bindings []*TopicBinding
	for i := range f.Events {
		if f.Events[i].ExternalSNS != nil {
			bindings = append(bindings, f.Events[i].ExternalSNS)
		}
	}
	return bindings
}

// LoadManifest reads and validates the manifest at path. Function names are
// filled in from the map keys and every topic binding must name a topic.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.ErrManifest(fmt.Sprintf("reading manifest %s", path), err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, apperrors.ErrManifest(fmt.Sprintf("parsing manifest %s", path), err)
	}

	for name, fn := range m.Functions {
		if fn == nil {
			fn = &Function{}
			m.Functions[name] = fn
		}
		fn.Name = name
		for _, binding := range fn.TopicBindings() {
			if binding.Topic == "" {
				return nil, apperrors.ErrInvalidBinding(
					fmt.Sprintf("function %q declares an externalSNS event with no topic name", name), nil)
			}
		}
	}

	return &m, nil
}

// FunctionNames returns the manifest's function names sorted for stable output.
func (m *Manifest) FunctionNames() []string {
	names := make([]string, 0, len(m.Functions))
	for name := range m.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
