package core

import (
	"slices"
	"sort"
	"strings"

	"productmd/internal/types"
)

// Handle addresses a variant inside a VariantTree.
type Handle int

// RootHandle is the tree's top-level container. It holds variants but
// is not one itself.
const RootHandle Handle = -1

const detached Handle = -2

// treeVariant is implemented by the variant flavours stored in a tree.
type treeVariant[V any] interface {
	variantID() string
	variantUID() string
	variantType() types.VariantType
	// variantArches returns nil for flavours without per-variant arches.
	variantArches() []string
	// validateUnder checks the variant's own fields given its parent.
	// parent is the zero value when hasParent is false.
	validateUnder(parent V, hasParent bool) error
}

type variantNode[V any] struct {
	variant  V
	parent   Handle
	children map[string]Handle
}

// VariantTree is an arena of variants. Nodes are owned by the tree and
// refer to each other by handle, so parent links never form reference
// cycles.
type VariantTree[V treeVariant[V]] struct {
	nodes []*variantNode[V]
	root  map[string]Handle
}

func NewVariantTree[V treeVariant[V]]() *VariantTree[V] {
	return &VariantTree[V]{root: map[string]Handle{}}
}

// NewVariant stores v as a detached node. It joins the hierarchy
// through Add.
func (t *VariantTree[V]) NewVariant(v V) Handle {
	t.nodes = append(t.nodes, &variantNode[V]{variant: v, parent: detached, children: map[string]Handle{}})
	return Handle(len(t.nodes) - 1)
}

func (t *VariantTree[V]) node(h Handle) (*variantNode[V], bool) {
	if h < 0 || int(h) >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[h], true
}

// Get returns the variant stored at h.
func (t *VariantTree[V]) Get(h Handle) (V, bool) {
	n, ok := t.node(h)
	if !ok {
		var zero V
		return zero, false
	}
	return n.variant, true
}

// MustGet is Get for handles obtained from this tree.
func (t *VariantTree[V]) MustGet(h Handle) V {
	v, ok := t.Get(h)
	if !ok {
		panic("variant tree: invalid handle")
	}
	return v
}

// Parent returns the parent variant of h. Top-level variants and
// detached nodes have none.
func (t *VariantTree[V]) Parent(h Handle) (Handle, bool) {
	n, ok := t.node(h)
	if !ok || n.parent < 0 {
		return 0, false
	}
	return n.parent, true
}

func (t *VariantTree[V]) children(container Handle) (map[string]Handle, bool) {
	if container == RootHandle {
		return t.root, true
	}
	n, ok := t.node(container)
	if !ok {
		return nil, false
	}
	return n.children, true
}

// Keys lists the child keys of a container in sorted order.
func (t *VariantTree[V]) Keys(container Handle) []string {
	children, _ := t.children(container)
	return sortedKeys(children)
}

// Children returns child handles ordered by key.
func (t *VariantTree[V]) Children(container Handle) []Handle {
	children, _ := t.children(container)
	out := make([]Handle, 0, len(children))
	for _, key := range sortedKeys(children) {
		out = append(out, children[key])
	}
	return out
}

func (t *VariantTree[V]) Len(container Handle) int {
	children, _ := t.children(container)
	return len(children)
}

// ancestors returns container and every variant above it.
func (t *VariantTree[V]) ancestors(container Handle) []Handle {
	var out []Handle
	for h := container; h >= 0; {
		out = append(out, h)
		h = t.nodes[h].parent
	}
	return out
}

// Add inserts h under container with key, or under the variant id when
// key is empty. Nothing is changed when Add fails.
func (t *VariantTree[V]) Add(container Handle, h Handle, key string) error {
	children, ok := t.children(container)
	if !ok {
		return notFoundf("unknown variant container %d", container)
	}
	n, ok := t.node(h)
	if !ok {
		return notFoundf("unknown variant handle %d", h)
	}
	if key == "" {
		key = n.variant.variantID()
	}

	if container != RootHandle {
		parents := t.ancestors(container)
		if slices.Contains(parents, h) {
			uids := make([]string, 0, len(parents))
			for _, p := range parents {
				uids = append(uids, t.nodes[p].variant.variantUID())
			}
			sort.Strings(uids)
			return invalidf("dependency cycle detected; variant %s; parents: %v", n.variant.variantUID(), uids)
		}
	}

	var parent V
	hasParent := container != RootHandle
	if hasParent {
		parent = t.nodes[container].variant
	}
	if err := t.validateNode(n.variant, parent, hasParent); err != nil {
		return err
	}

	if existing, taken := children[key]; taken {
		if existing == h {
			return nil
		}
		return duplicatef("variant ID already exists: %s", key)
	}
	if n.parent != detached {
		return invalidf("variant %s already belongs to another container", n.variant.variantUID())
	}

	children[key] = h
	n.parent = container
	return nil
}

func (t *VariantTree[V]) validateNode(v V, parent V, hasParent bool) error {
	if err := v.validateUnder(parent, hasParent); err != nil {
		return err
	}
	if !hasParent {
		return nil
	}
	parentArches := parent.variantArches()
	if parentArches == nil {
		return nil
	}
	for _, arch := range v.variantArches() {
		if !slices.Contains(parentArches, arch) {
			return invalidf("variant '%s': arch '%s' not found in parent arches %v", v.variantUID(), arch, parentArches)
		}
	}
	return nil
}

// Validate re-checks every attached variant, for use after callers
// edited variants in place.
func (t *VariantTree[V]) Validate() error {
	return t.validateBelow(RootHandle)
}

func (t *VariantTree[V]) validateBelow(container Handle) error {
	children, _ := t.children(container)
	for _, key := range sortedKeys(children) {
		h := children[key]
		var parent V
		if container != RootHandle {
			parent = t.nodes[container].variant
		}
		v := t.nodes[h].variant
		if err := t.validateNode(v, parent, container != RootHandle); err != nil {
			return err
		}
		if container != RootHandle && v.variantID() != key {
			return invalidf("variant ID doesn't match: '%s' vs '%s'", v.variantID(), key)
		}
		if err := t.validateBelow(h); err != nil {
			return err
		}
	}
	return nil
}

// Lookup resolves name below container. Besides direct keys it accepts
// uids of direct children and dash-joined paths that skip levels, such
// as "Server-optional" looked up from the root.
func (t *VariantTree[V]) Lookup(container Handle, name string) (Handle, error) {
	children, ok := t.children(container)
	if !ok {
		return 0, notFoundf("unknown variant container %d", container)
	}
	if h, ok := children[name]; ok {
		return h, nil
	}
	if !strings.Contains(name, "-") {
		return 0, notFoundf("variant not found: %s", name)
	}
	for _, key := range sortedKeys(children) {
		if h := children[key]; t.nodes[h].variant.variantUID() == name {
			return h, nil
		}
	}
	head, tail, _ := strings.Cut(name, "-")
	child, ok := children[head]
	if !ok {
		return 0, notFoundf("variant not found: %s", name)
	}
	return t.Lookup(child, tail)
}

// Delete detaches the variant name resolves to, using Lookup's
// splitting rules, and returns its handle.
func (t *VariantTree[V]) Delete(container Handle, name string) (Handle, error) {
	children, ok := t.children(container)
	if !ok {
		return 0, notFoundf("unknown variant container %d", container)
	}
	if h, ok := children[name]; ok || !strings.Contains(name, "-") {
		if !ok {
			return 0, notFoundf("variant not found: %s", name)
		}
		delete(children, name)
		t.nodes[h].parent = detached
		return h, nil
	}
	head, tail, _ := strings.Cut(name, "-")
	child, ok := children[head]
	if !ok {
		return 0, notFoundf("variant not found: %s", name)
	}
	return t.Delete(child, tail)
}

// VariantFilter selects variants in GetVariants. Empty fields match
// everything.
type VariantFilter struct {
	Arch      string
	Types     []types.VariantType
	Recursive bool
}

// GetVariants returns the variants of container matching filter,
// sorted by uid. The "self" pseudo type includes container itself when
// it is a variant. Arch "src" always matches.
func (t *VariantTree[V]) GetVariants(container Handle, filter VariantFilter) []Handle {
	var out []Handle
	if container != RootHandle && slices.Contains(filter.Types, types.VariantTypeSelf) {
		out = append(out, container)
	}
	t.collect(container, filter, &out)
	sort.SliceStable(out, func(i, j int) bool {
		return t.nodes[out[i]].variant.variantUID() < t.nodes[out[j]].variant.variantUID()
	})
	return out
}

func (t *VariantTree[V]) collect(container Handle, filter VariantFilter, out *[]Handle) {
	children, _ := t.children(container)
	for _, key := range sortedKeys(children) {
		h := children[key]
		v := t.nodes[h].variant
		if len(filter.Types) > 0 && !slices.Contains(filter.Types, v.variantType()) {
			continue
		}
		if filter.Arch != "" && filter.Arch != "src" {
			if arches := v.variantArches(); arches != nil && !slices.Contains(arches, filter.Arch) {
				continue
			}
		}
		*out = append(*out, h)
		if filter.Recursive {
			t.collect(h, filter, out)
		}
	}
}

// Walk visits every attached variant depth first, parents before
// children, siblings in key order.
func (t *VariantTree[V]) Walk(fn func(h Handle, v V) error) error {
	return t.walk(RootHandle, fn)
}

func (t *VariantTree[V]) walk(container Handle, fn func(h Handle, v V) error) error {
	for _, h := range t.Children(container) {
		if err := fn(h, t.nodes[h].variant); err != nil {
			return err
		}
		if err := t.walk(h, fn); err != nil {
			return err
		}
	}
	return nil
}

// UIDs returns the uids of every attached variant, sorted.
func (t *VariantTree[V]) UIDs() []string {
	var out []string
	_ = t.Walk(func(_ Handle, v V) error {
		out = append(out, v.variantUID())
		return nil
	})
	sort.Strings(out)
	return out
}
