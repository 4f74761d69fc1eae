package batch

import (
	"sort"
	"strings"

	"github.com/tauraamui/videobatch/pkg/log"
	"github.com/tauraamui/xerror"
)

// Process-wide command registry, populated single threaded via init()
// before any run starts, so it carries no locking.
var registry = map[string]Descriptor{}

// Register stores the descriptor under its name. Registering over an
// existing name is not an error: the later registration wins.
func Register(d Descriptor) {
	if _, ok := registry[d.Name]; ok {
		log.Warn("command %q overriding an existing registration", d.Name)
	}
	registry[d.Name] = d
}

func Lookup(name string) (Descriptor, error) {
	d, ok := registry[name]
	if !ok {
		return Descriptor{}, xerror.Errorf(
			"unknown command %q: registered commands are [%s]", name, strings.Join(Names(), ", "),
		)
	}
	return d, nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Descriptors() []Descriptor {
	ds := make([]Descriptor, 0, len(registry))
	for _, name := range Names() {
		ds = append(ds, registry[name])
	}
	return ds
}
