package router

import (
	"sort"
	"strings"

	"github.com/nowkit/nowkit/core/bot/render"
)

// Help assembles the command index from registered route descriptions.
// Hidden and undocumented routes are omitted. When the router was built with
// a help template, the index replaces its %{help} placeholder.
func (r *Router) Help() string {
	names := make([]string, 0, len(r.routes))
	for name, rt := range r.routes {
		if rt.Hidden || rt.Description == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]string, 0, len(names))
	for _, name := range names {
		entries = append(entries, "/"+name+" "+r.routes[name].Description)
	}
	index := strings.Join(entries, "\n\n")

	if r.helpTemplate != "" {
		return render.Sprintf(r.helpTemplate, map[string]string{"help": index})
	}
	return index
}
