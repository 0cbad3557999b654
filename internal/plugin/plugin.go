// Package plugin wires the deployment lifecycle hooks: compile permissions
// before deploy, subscribe after deploy, unsubscribe before remove. The
// Plugin struct is the explicit per-run context every hook operates on; there
// is no process-wide singleton.
package plugin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/topicbind/topicbind/internal/config"
	"github.com/topicbind/topicbind/internal/project"
	"github.com/topicbind/topicbind/internal/providers/aws"
	"github.com/topicbind/topicbind/internal/template"
)

// Plugin carries the state shared by lifecycle hooks for one run.
type Plugin struct {
	Config     *config.Config
	Manifest   *project.Manifest
	Clients    *aws.Clients
	Reconciler *aws.Reconciler
	Stack      *aws.PermissionStack
	Logger     *slog.Logger
}

// New assembles a plugin context for one lifecycle run.
func New(cfg *config.Config, manifest *project.Manifest, clients *aws.Clients, logger *slog.Logger) *Plugin {
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{
		Config:     cfg,
		Manifest:   manifest,
		Clients:    clients,
		Reconciler: aws.NewReconciler(cfg, clients, logger),
		Stack:      aws.NewPermissionStack(clients.CloudFormation, logger),
		Logger:     logger,
	}
}

// Compile synthesizes the permission template from the manifest. It is pure:
// no remote calls, deterministic resource ids, last write wins per id.
func (p *Plugin) Compile() *template.Template {
	tmpl := template.New()
	// The compile walk cannot fail per binding; errors.Join of nils is nil.
	_ = project.ForEachTopicBinding(context.Background(), p.Manifest.Functions,
		func(_ context.Context, fn *project.Function, binding *project.TopicBinding) error {
			id := template.PermissionID(fn.Name, binding.Topic)
			deployedName := fmt.Sprintf("%s-%s", fn.Name, p.Config.Stage)
			tmpl.Put(id, template.CompilePermission(deployedName, binding.Topic))
			p.Logger.Debug("compiled permission", "function", fn.Name, "topic", binding.Topic, "id", id)
			return nil
		})
	return tmpl
}

// WriteTemplate compiles and writes the permission template to the configured
// output path. Honors no-deploy by logging and skipping the write.
func (p *Plugin) WriteTemplate() (*template.Template, error) {
	tmpl := p.Compile()
	if p.Config.NoDeploy {
		p.Logger.Info("no-deploy is set, skipping template write",
			"path", p.Config.TemplatePath, "resources", tmpl.Len())
		return tmpl, nil
	}
	if err := tmpl.WriteFile(p.Config.TemplatePath); err != nil {
		return nil, err
	}
	p.Logger.Info("permission template written",
		"path", p.Config.TemplatePath, "resources", tmpl.Len())
	return tmpl, nil
}

// ApplyPermissions applies the compiled template as a CloudFormation stack.
func (p *Plugin) ApplyPermissions(ctx context.Context) error {
	tmpl := p.Compile()
	if tmpl.Len() == 0 {
		p.Logger.Info("no external topic bindings, skipping permission stack")
		return nil
	}
	if p.Config.NoDeploy {
		p.Logger.Info("no-deploy is set, skipping permission stack apply",
			"stack", p.Config.StackName())
		return nil
	}
	body, err := tmpl.Body()
	if err != nil {
		return err
	}
	return p.Stack.Apply(ctx, p.Config.StackName(), body)
}

// RemovePermissions deletes the permission stack.
func (p *Plugin) RemovePermissions(ctx context.Context) error {
	if p.Config.NoDeploy {
		p.Logger.Info("no-deploy is set, skipping permission stack delete",
			"stack", p.Config.StackName())
		return nil
	}
	return p.Stack.Delete(ctx, p.Config.StackName())
}

// SubscribeAll reconciles every (function, topic) binding towards subscribed.
// Failures are collected per binding; one function's failure does not stop
// the others.
func (p *Plugin) SubscribeAll(ctx context.Context) error {
	return project.Reconcile(ctx, p.Manifest.Functions, p.Config.Concurrency, p.Reconciler.Subscribe)
}

// SubscribeAllStandalone is SubscribeAll plus direct invoke-permission
// grants, for runs where no permission stack deploy happens.
func (p *Plugin) SubscribeAllStandalone(ctx context.Context) error {
	return project.Reconcile(ctx, p.Manifest.Functions, p.Config.Concurrency,
		func(ctx context.Context, fn *project.Function, binding *project.TopicBinding) error {
			if err := p.Reconciler.EnsurePermission(ctx, fn, binding); err != nil {
				return err
			}
			return p.Reconciler.Subscribe(ctx, fn, binding)
		})
}

// UnsubscribeAll reconciles every (function, topic) binding towards
// unsubscribed.
func (p *Plugin) UnsubscribeAll(ctx context.Context) error {
	return project.Reconcile(ctx, p.Manifest.Functions, p.Config.Concurrency, p.Reconciler.Unsubscribe)
}

// UnsubscribeAllStandalone is UnsubscribeAll plus direct invoke-permission
// revocation.
func (p *Plugin) UnsubscribeAllStandalone(ctx context.Context) error {
	return project.Reconcile(ctx, p.Manifest.Functions, p.Config.Concurrency,
		func(ctx context.Context, fn *project.Function, binding *project.TopicBinding) error {
			if err := p.Reconciler.Unsubscribe(ctx, fn, binding); err != nil {
				return err
			}
			return p.Reconciler.RemoveInvokePermission(ctx, fn, binding)
		})
}

// Bindings returns every (function name, topic binding) pair in the manifest,
// ordered by function name, for reporting.
func (p *Plugin) Bindings() []Binding {
	var out []Binding
	for _, name := range p.Manifest.FunctionNames() {
		fn := p.Manifest.Functions[name]
		for _, b := range fn.TopicBindings() {
			out = append(out, Binding{Function: name, Topic: b.Topic, Protocol: b.EffectiveProtocol()})
		}
	}
	return out
}

// Binding is one manifest-declared function→topic linkage for reporting.
type Binding struct {
	Function string
	Topic    string
	Protocol string
}
