package config

type Context struct {
	Modules  []ModuleI
	Registry *ChainTypeRegistry
	Config   *Config
}

// NewContext registers the chain types of modules.
func NewContext(modules []ModuleI, cfg *Config) *Context {
	registry := NewChainTypeRegistry()
	for _, m := range modules {
		m.RegisterChainTypes(registry)
	}
	return &Context{Modules: modules, Registry: registry, Config: cfg}
}
