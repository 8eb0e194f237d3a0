// Package decompile renders compiled artifacts back to text.
//
// Managed assemblies name the packages they reference; those are resolved
// through a process-wide refcache.Cache so that concurrent requests load each
// package once. Rendered text is kept in a bounded LRU keyed by family and
// artifact hash.
package decompile

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"polylab/internal/backend"
	"polylab/internal/backend/gotypes"
	"polylab/internal/refcache"
	"polylab/internal/trace"
)

const DefaultRenderCacheSize = 256

// RefInfo is what the decompiler knows about a referenced package.
type RefInfo struct {
	Path     string
	Name     string
	Exported int
}

var sharedRefs = sync.OnceValue(func() *refcache.Cache[*RefInfo] {
	return refcache.New(LoadReference(gotypes.NewReferences()))
})

// SharedReferences is the process-wide reference cache.
func SharedReferences() *refcache.Cache[*RefInfo] {
	return sharedRefs()
}

// LoadReference type-checks the referenced package from source.
func LoadReference(refs *gotypes.References) refcache.LoadFunc[*RefInfo] {
	return func(_ context.Context, id refcache.Identity) (*RefInfo, error) {
		pkg, err := refs.Import(id.Name)
		if err != nil {
			return nil, err
		}
		info := &RefInfo{Path: pkg.Path(), Name: pkg.Name()}
		scope := pkg.Scope()
		for _, n := range scope.Names() {
			if scope.Lookup(n).Exported() {
				info.Exported++
			}
		}
		return info, nil
	}
}

type Options struct {
	// References defaults to SharedReferences().
	References      *refcache.Cache[*RefInfo]
	RenderCacheSize int
}

type Decompiler struct {
	refs    *refcache.Cache[*RefInfo]
	renders *lru.Cache[string, string]
}

func New(opts Options) (*Decompiler, error) {
	size := opts.RenderCacheSize
	if size <= 0 {
		size = DefaultRenderCacheSize
	}
	renders, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("render cache: %w", err)
	}
	refs := opts.References
	if refs == nil {
		refs = SharedReferences()
	}
	return &Decompiler{refs: refs, renders: renders}, nil
}

// Decompile renders artifact. docs is the documentation output of the same
// compile and may be nil.
func (d *Decompiler) Decompile(ctx context.Context, family backend.Family, artifact, docs []byte) (string, error) {
	if len(artifact) == 0 {
		return "", fmt.Errorf("decompile %s: empty artifact", family)
	}
	span, ctx := trace.Start(ctx, trace.ScopeRequest, "decompile")
	defer span.End("")

	key := renderKey(family, artifact, docs)
	if text, ok := d.renders.Get(key); ok {
		span.Set("cache", "hit")
		return text, nil
	}

	var (
		text string
		err  error
	)
	switch family {
	case backend.FamilyManaged:
		text, err = d.renderManaged(ctx, artifact, docs)
	case backend.FamilyScripting:
		text, err = renderScript(artifact, docs)
	case backend.FamilyFunctional:
		text, err = renderFunctional(artifact)
	default:
		err = fmt.Errorf("no decompiler for family %s", family)
	}
	if err != nil {
		return "", err
	}
	d.renders.Add(key, text)
	return text, nil
}

// Cached reports how many renders are held.
func (d *Decompiler) Cached() int { return d.renders.Len() }

func renderKey(family backend.Family, artifact, docs []byte) string {
	h := sha256.New()
	h.Write(artifact)
	h.Write([]byte{0})
	h.Write(docs)
	return family.String() + ":" + hex.EncodeToString(h.Sum(nil))
}

func renderFunctional(artifact []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(artifact), "", "  "); err != nil {
		return "", fmt.Errorf("decompile functional output: %w", err)
	}
	buf.WriteByte('\n')
	return buf.String(), nil
}
