// Package registry implements the dynamic capability registry: independent
// tables for tools, resources, resource templates, prompts and prompt
// templates, keyed by name or URI, with exact lookup, best-match template
// lookup and cursor-based listing.
package registry

import (
	"sync"

	mcperrors "github.com/agentforge/mcp-runtime-go/pkg/errors"
	"github.com/agentforge/mcp-runtime-go/pkg/invoker"
	"github.com/agentforge/mcp-runtime-go/pkg/logging"
	"github.com/agentforge/mcp-runtime-go/pkg/pagination"
)

// Kind identifies one of the registry's tables.
type Kind string

const (
	KindTool             Kind = "tool"
	KindResource         Kind = "resource"
	KindResourceTemplate Kind = "resource_template"
	KindPrompt           Kind = "prompt"
	KindPromptTemplate   Kind = "prompt_template"
)

// ToolDescriptor describes a callable operation. Immutable once registered.
type ToolDescriptor struct {
	Name        string
	Description string
	Params      []invoker.ParamSpec
	Handler     invoker.HandlerFunc
}

// ResourceDescriptor describes a readable, optionally subscribable data
// source. Immutable once registered.
type ResourceDescriptor struct {
	URI          string
	Name         string
	Description  string
	MimeType     string
	Subscribable bool
	Handler      invoker.ResourceHandlerFunc
}

// ResourceTemplateDescriptor describes a parametrized family of resources.
// The template is never expanded into concrete entries; candidates are
// matched lazily per request.
type ResourceTemplateDescriptor struct {
	URITemplate string
	Name        string
	Description string
	MimeType    string
	Handler     invoker.ResourceHandlerFunc

	template *Template
}

// PromptDescriptor describes a prompt generator.
type PromptDescriptor struct {
	Name        string
	Description string
	Params      []invoker.ParamSpec
	Handler     invoker.HandlerFunc
}

// PromptTemplateDescriptor describes a parametrized family of prompts keyed
// by a name-path template such as "review/{style}".
type PromptTemplateDescriptor struct {
	NameTemplate string
	Description  string
	Params       []invoker.ParamSpec
	Handler      invoker.HandlerFunc

	template *Template
}

// ChangeListener is notified after a successful mutation of a table. It is
// used to schedule list_changed notifications; the registry itself performs
// no I/O.
type ChangeListener func(kind Kind)

// table is one mutex-guarded map with a stable (registration) iteration
// order. Reads are safe to run concurrently; mutation takes the write lock.
type table struct {
	mu      sync.RWMutex
	entries map[string]interface{}
	order   []string
}

func newTable() *table {
	return &table{entries: make(map[string]interface{})}
}

func (t *table) register(kind Kind, key string, desc interface{}) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; exists {
		return mcperrors.AlreadyExists(string(kind), key)
	}
	t.entries[key] = desc
	t.order = append(t.order, key)
	return nil
}

func (t *table) unregister(kind Kind, key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; !exists {
		return mcperrors.EntryNotFound(string(kind), key)
	}
	delete(t.entries, key)
	for idx, k := range t.order {
		if k == key {
			t.order = append(t.order[:idx], t.order[idx+1:]...)
			break
		}
	}
	return nil
}

func (t *table) lookup(key string) (interface{}, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	desc, ok := t.entries[key]
	return desc, ok
}

func (t *table) size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// page returns one page of descriptors in registration order.
func (t *table) page(cursor string) ([]interface{}, string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys, nextCursor, err := pagination.Slice(t.order, cursor, pagination.DefaultLimit)
	if err != nil {
		return nil, "", mcperrors.InvalidCursor(cursor)
	}

	items := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		items = append(items, t.entries[key])
	}
	return items, nextCursor, nil
}

// snapshot returns every descriptor in registration order.
func (t *table) snapshot() []interface{} {
	t.mu.RLock()
	defer t.mu.RUnlock()

	items := make([]interface{}, 0, len(t.order))
	for _, key := range t.order {
		items = append(items, t.entries[key])
	}
	return items
}

// Registry holds the five capability tables. Built once at startup from
// static capabilities, mutable thereafter for dynamic registration.
type Registry struct {
	tools             *table
	resources         *table
	resourceTemplates *table
	prompts           *table
	promptTemplates   *table

	listener ChangeListener
	logger   logging.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithChangeListener sets the mutation listener
func WithChangeListener(listener ChangeListener) Option {
	return func(r *Registry) {
		r.listener = listener
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates an empty Registry
func New(options ...Option) *Registry {
	r := &Registry{
		tools:             newTable(),
		resources:         newTable(),
		resourceTemplates: newTable(),
		prompts:           newTable(),
		promptTemplates:   newTable(),
		logger:            logging.NewNop(),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

// SetChangeListener replaces the mutation listener. Used by the composition
// root to wire notifications after both sides exist.
func (r *Registry) SetChangeListener(listener ChangeListener) {
	r.listener = listener
}

func (r *Registry) notifyChanged(kind Kind) {
	if r.listener != nil {
		r.listener(kind)
	}
}

// RegisterTool adds a tool. Fails if the name is already taken.
func (r *Registry) RegisterTool(d ToolDescriptor) error {
	if err := r.tools.register(KindTool, d.Name, &d); err != nil {
		return err
	}
	r.logger.Debug("registered tool", logging.String("name", d.Name))
	r.notifyChanged(KindTool)
	return nil
}

// UnregisterTool removes a tool. Fails if the name is absent.
func (r *Registry) UnregisterTool(name string) error {
	if err := r.tools.unregister(KindTool, name); err != nil {
		return err
	}
	r.notifyChanged(KindTool)
	return nil
}

// Tool returns the tool registered under name, if any
func (r *Registry) Tool(name string) (*ToolDescriptor, bool) {
	desc, ok := r.tools.lookup(name)
	if !ok {
		return nil, false
	}
	return desc.(*ToolDescriptor), true
}

// ListTools returns one page of tools in registration order
func (r *Registry) ListTools(cursor string) ([]*ToolDescriptor, string, error) {
	items, next, err := r.tools.page(cursor)
	if err != nil {
		return nil, "", err
	}
	tools := make([]*ToolDescriptor, len(items))
	for idx, item := range items {
		tools[idx] = item.(*ToolDescriptor)
	}
	return tools, next, nil
}

// RegisterResource adds a resource. Fails if the URI is already taken.
func (r *Registry) RegisterResource(d ResourceDescriptor) error {
	if err := r.resources.register(KindResource, d.URI, &d); err != nil {
		return err
	}
	r.logger.Debug("registered resource", logging.String("uri", d.URI))
	r.notifyChanged(KindResource)
	return nil
}

// UnregisterResource removes a resource. Outstanding subscriptions to the
// URI stay in place; later reads or notifies against it fail as not found.
func (r *Registry) UnregisterResource(uri string) error {
	if err := r.resources.unregister(KindResource, uri); err != nil {
		return err
	}
	r.notifyChanged(KindResource)
	return nil
}

// Resource returns the resource registered under uri, if any
func (r *Registry) Resource(uri string) (*ResourceDescriptor, bool) {
	desc, ok := r.resources.lookup(uri)
	if !ok {
		return nil, false
	}
	return desc.(*ResourceDescriptor), true
}

// ListResources returns one page of resources in registration order
func (r *Registry) ListResources(cursor string) ([]*ResourceDescriptor, string, error) {
	items, next, err := r.resources.page(cursor)
	if err != nil {
		return nil, "", err
	}
	resources := make([]*ResourceDescriptor, len(items))
	for idx, item := range items {
		resources[idx] = item.(*ResourceDescriptor)
	}
	return resources, next, nil
}

// RegisterResourceTemplate adds a resource template. Template keys collide
// only on identical template strings.
func (r *Registry) RegisterResourceTemplate(d ResourceTemplateDescriptor) error {
	template, err := ParseTemplate(d.URITemplate)
	if err != nil {
		return mcperrors.InvalidParameter("uriTemplate", d.URITemplate, "segment template").WithDetail(err.Error())
	}
	d.template = template

	if err := r.resourceTemplates.register(KindResourceTemplate, d.URITemplate, &d); err != nil {
		return err
	}
	r.logger.Debug("registered resource template", logging.String("template", d.URITemplate))
	r.notifyChanged(KindResource)
	return nil
}

// UnregisterResourceTemplate removes a resource template
func (r *Registry) UnregisterResourceTemplate(uriTemplate string) error {
	if err := r.resourceTemplates.unregister(KindResourceTemplate, uriTemplate); err != nil {
		return err
	}
	r.notifyChanged(KindResource)
	return nil
}

// ListResourceTemplates returns one page of resource templates
func (r *Registry) ListResourceTemplates(cursor string) ([]*ResourceTemplateDescriptor, string, error) {
	items, next, err := r.resourceTemplates.page(cursor)
	if err != nil {
		return nil, "", err
	}
	templates := make([]*ResourceTemplateDescriptor, len(items))
	for idx, item := range items {
		templates[idx] = item.(*ResourceTemplateDescriptor)
	}
	return templates, next, nil
}

// MatchResourceTemplate finds the best resource template match for a
// concrete URI. When multiple templates match, the one with the fewest
// placeholder segments wins; remaining ties go to the earliest-registered
// template.
func (r *Registry) MatchResourceTemplate(uri string) (*ResourceTemplateDescriptor, map[string]string, bool) {
	var best *ResourceTemplateDescriptor
	var bestBindings map[string]string

	for _, item := range r.resourceTemplates.snapshot() {
		candidate := item.(*ResourceTemplateDescriptor)
		bindings, ok := candidate.template.Match(uri)
		if !ok {
			continue
		}
		if best == nil || candidate.template.NumParams() < best.template.NumParams() {
			best = candidate
			bestBindings = bindings
		}
	}

	if best == nil {
		return nil, nil, false
	}
	return best, bestBindings, true
}

// RegisterPrompt adds a prompt. Fails if the name is already taken.
func (r *Registry) RegisterPrompt(d PromptDescriptor) error {
	if err := r.prompts.register(KindPrompt, d.Name, &d); err != nil {
		return err
	}
	r.logger.Debug("registered prompt", logging.String("name", d.Name))
	r.notifyChanged(KindPrompt)
	return nil
}

// UnregisterPrompt removes a prompt
func (r *Registry) UnregisterPrompt(name string) error {
	if err := r.prompts.unregister(KindPrompt, name); err != nil {
		return err
	}
	r.notifyChanged(KindPrompt)
	return nil
}

// Prompt returns the prompt registered under name, if any
func (r *Registry) Prompt(name string) (*PromptDescriptor, bool) {
	desc, ok := r.prompts.lookup(name)
	if !ok {
		return nil, false
	}
	return desc.(*PromptDescriptor), true
}

// ListPrompts returns one page of prompts in registration order
func (r *Registry) ListPrompts(cursor string) ([]*PromptDescriptor, string, error) {
	items, next, err := r.prompts.page(cursor)
	if err != nil {
		return nil, "", err
	}
	prompts := make([]*PromptDescriptor, len(items))
	for idx, item := range items {
		prompts[idx] = item.(*PromptDescriptor)
	}
	return prompts, next, nil
}

// RegisterPromptTemplate adds a prompt template keyed by its name-path
// pattern.
func (r *Registry) RegisterPromptTemplate(d PromptTemplateDescriptor) error {
	template, err := ParseTemplate(d.NameTemplate)
	if err != nil {
		return mcperrors.InvalidParameter("nameTemplate", d.NameTemplate, "segment template").WithDetail(err.Error())
	}
	d.template = template

	if err := r.promptTemplates.register(KindPromptTemplate, d.NameTemplate, &d); err != nil {
		return err
	}
	r.logger.Debug("registered prompt template", logging.String("template", d.NameTemplate))
	r.notifyChanged(KindPrompt)
	return nil
}

// UnregisterPromptTemplate removes a prompt template
func (r *Registry) UnregisterPromptTemplate(nameTemplate string) error {
	if err := r.promptTemplates.unregister(KindPromptTemplate, nameTemplate); err != nil {
		return err
	}
	r.notifyChanged(KindPrompt)
	return nil
}

// MatchPromptTemplate finds the best prompt template match for a concrete
// name, with the same tie-break as MatchResourceTemplate.
func (r *Registry) MatchPromptTemplate(name string) (*PromptTemplateDescriptor, map[string]string, bool) {
	var best *PromptTemplateDescriptor
	var bestBindings map[string]string

	for _, item := range r.promptTemplates.snapshot() {
		candidate := item.(*PromptTemplateDescriptor)
		bindings, ok := candidate.template.Match(name)
		if !ok {
			continue
		}
		if best == nil || candidate.template.NumParams() < best.template.NumParams() {
			best = candidate
			bestBindings = bindings
		}
	}

	if best == nil {
		return nil, nil, false
	}
	return best, bestBindings, true
}

// HasTools reports whether at least one tool is registered
func (r *Registry) HasTools() bool {
	return r.tools.size() > 0
}

// HasResources reports whether at least one resource or resource template is
// registered
func (r *Registry) HasResources() bool {
	return r.resources.size() > 0 || r.resourceTemplates.size() > 0
}

// HasPrompts reports whether at least one prompt or prompt template is
// registered
func (r *Registry) HasPrompts() bool {
	return r.prompts.size() > 0 || r.promptTemplates.size() > 0
}

// Count returns the number of entries in the given table
func (r *Registry) Count(kind Kind) int {
	switch kind {
	case KindTool:
		return r.tools.size()
	case KindResource:
		return r.resources.size()
	case KindResourceTemplate:
		return r.resourceTemplates.size()
	case KindPrompt:
		return r.prompts.size()
	case KindPromptTemplate:
		return r.promptTemplates.size()
	default:
		return 0
	}
}
