package embedtext

import (
	"fmt"
	"strings"

	"github.com/modscope/modscope/internal/component"
)

// Named vector channels. One indexed component stores one embedding per
// channel it has text for; queries address a single channel.
const (
	ChannelIdentity      = "identity"
	ChannelInputs        = "inputs"
	ChannelRelationships = "relationships"
)

// IdentityText renders the identity description of a component: what it is
// called, what it is, where it lives, its symbol and its documentation.
// Deterministic for identical inputs.
func IdentityText(c *component.Component) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is a %s at %s", c.Name, c.Kind, c.Path)
	if c.Symbol != "" {
		fmt.Fprintf(&b, " (symbol %s)", c.Symbol)
	}
	b.WriteString(".")
	if c.OwningModule != "" && c.OwningModule != c.Path {
		fmt.Fprintf(&b, " Part of %s.", c.OwningModule)
	}
	if doc := strings.TrimSpace(c.Docstring); doc != "" {
		b.WriteString(" ")
		b.WriteString(doc)
	}
	return b.String()
}

// InputsText renders the parameter/type description of a component for the
// "inputs" channel. Empty when the component has no signature, in which case
// the channel is omitted from the stored point.
func InputsText(c *component.Component) string {
	sig := strings.TrimSpace(c.SignatureText)
	if sig == "" {
		return ""
	}
	return fmt.Sprintf("Inputs for %s: %s", c.Name, sig)
}

// ContainmentText renders the structural edges touching a component, e.g.
// "Card contains Button via field Buttons. Card is contained in Deck via
// field Cards." Empty when no edges touch the component.
func ContainmentText(c *component.Component, rels []component.Relationship) string {
	parents, children := component.RelationshipsFor(rels, c.Path)
	if len(parents) == 0 && len(children) == 0 {
		return ""
	}
	var parts []string
	for _, r := range children {
		parts = append(parts, fmt.Sprintf("%s contains %s via field %s.", c.Name, lastSegment(r.ChildPath), r.FieldName))
	}
	for _, r := range parents {
		parts = append(parts, fmt.Sprintf("%s is contained in %s via field %s.", c.Name, lastSegment(r.ParentPath), r.FieldName))
	}
	return strings.Join(parts, " ")
}

// Channels assembles the per-channel text map for one component.
// relationshipText is the runtime co-occurrence description produced by the
// relationship graph (may be empty); structural containment is appended.
func Channels(c *component.Component, rels []component.Relationship, relationshipText string) map[string]string {
	channels := map[string]string{
		ChannelIdentity: IdentityText(c),
	}
	if inputs := InputsText(c); inputs != "" {
		channels[ChannelInputs] = inputs
	}

	var relParts []string
	if relationshipText = strings.TrimSpace(relationshipText); relationshipText != "" {
		relParts = append(relParts, relationshipText)
	}
	if containment := ContainmentText(c, rels); containment != "" {
		relParts = append(relParts, containment)
	}
	if len(relParts) > 0 {
		channels[ChannelRelationships] = strings.Join(relParts, " ")
	}
	return channels
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[i+1:]
	}
	return path
}
