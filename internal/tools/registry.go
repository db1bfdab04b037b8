package tools

import (
	"github.com/tmc/langchaingo/llms"
)

// Registry is the ordered table by name the design notes (§9) call for:
// "the registry is an ordered table by name." Model bundle and tool
// registry are set once at startup and read-only thereafter (§5).
type Registry struct {
	order []string
	byName map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.order = append(r.order, t.Name())
		r.byName[t.Name()] = t
	}
	return r
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// LangchainTools renders the registry as langchaingo tool schemas, for
// passing to llms.WithTools.
func (r *Registry) LangchainTools() []llms.Tool {
	out := make([]llms.Tool, 0, len(r.order))
	for _, name := range r.order {
		t := r.byName[name]
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Schema(),
			},
		})
	}
	return out
}
