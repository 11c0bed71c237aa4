package template

import "github.com/praetorian-inc/gosek/pkg/types"

// Override records a template name defined more than once. The last
// definition wins when the pattern set is built.
type Override struct {
	Name     string
	Winner   string   // source of the surviving definition
	Shadowed []string // sources of the replaced definitions, in load order
}

// Overrides reports every template name that appears more than once, in
// order of first appearance.
func Overrides(templates []types.Template) []Override {
	byName := make(map[string][]string)
	var order []string
	for _, t := range templates {
		if _, ok := byName[t.Name]; !ok {
			order = append(order, t.Name)
		}
		byName[t.Name] = append(byName[t.Name], t.Source)
	}

	var out []Override
	for _, name := range order {
		sources := byName[name]
		if len(sources) < 2 {
			continue
		}
		out = append(out, Override{
			Name:     name,
			Winner:   sources[len(sources)-1],
			Shadowed: sources[:len(sources)-1],
		})
	}
	return out
}
