// File: internal/extract/components.go
package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/stickerverse/figmaconvert/api/schemas"
	"github.com/stickerverse/figmaconvert/internal/assets"
)

// minComponentUses is how many structurally identical nodes it takes
// before a component definition is emitted.
const minComponentUses = 3

// detectComponents groups retained nodes by structural signature: same
// tag, same node taxonomy, same set of styled properties and the same
// child type sequence. Groups large enough become component definitions,
// and differing background colors within a group surface as variants.
func detectComponents(elements []schemas.CapturedElement, nodes map[int]*schemas.Node) (schemas.Components, map[string][]string) {
	type group struct {
		tag     string
		members []*schemas.Node
		colors  map[string]bool
	}
	groups := map[string]*group{}
	var order []string

	for _, el := range elements {
		node, ok := nodes[el.Index]
		if !ok {
			continue
		}
		sig := signature(el, node)
		g, ok := groups[sig]
		if !ok {
			g = &group{tag: el.TagName, colors: map[string]bool{}}
			groups[sig] = g
			order = append(order, sig)
		}
		g.members = append(g.members, node)
		if c := strings.TrimSpace(el.Styles["background-color"]); usableColor(c) {
			g.colors[c] = true
		}
	}

	comps := schemas.Components{Definitions: map[string]*schemas.ComponentDefinition{}}
	variants := map[string][]string{}
	seq := 0
	for _, sig := range order {
		g := groups[sig]
		if len(g.members) < minComponentUses {
			continue
		}
		seq++
		name := fmt.Sprintf("%s-component-%d", g.tag, seq)
		def := &schemas.ComponentDefinition{Name: name, Signature: sig}
		for _, m := range g.members {
			def.NodeIDs = append(def.NodeIDs, m.ID)
			m.ComponentSignature = sig
		}
		comps.Definitions[sig] = def

		if len(g.colors) > 1 {
			vals := make([]string, 0, len(g.colors))
			for c := range g.colors {
				vals = append(vals, c)
			}
			sort.Strings(vals)
			variants[name] = vals
		}
	}
	if len(variants) == 0 {
		variants = nil
	}
	return comps, variants
}

// signature fingerprints the reusable shape of a node: tag, taxonomy,
// which style keys are set and the ordered child types. Values that vary
// between instances of the same component (colors, geometry, text) stay
// out of the hash.
func signature(el schemas.CapturedElement, node *schemas.Node) string {
	keys := make([]string, 0, len(el.Styles))
	for k := range el.Styles {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(el.TagName)
	b.WriteByte('|')
	b.WriteString(string(node.Type))
	b.WriteByte('|')
	b.WriteString(strings.Join(keys, ","))
	b.WriteByte('|')
	for _, child := range node.Children {
		b.WriteString(string(child.Type))
		b.WriteByte(',')
	}
	return assets.ContentKey([]byte(b.String()))
}
