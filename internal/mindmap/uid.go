package mindmap

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
)

const maxSlugLen = 40

// NewMapID returns a globally unique id for a new map: a slug of the seed
// text plus random hex. Node ids within a map only need to be unique per
// tree and stay deterministic for readability; map ids cross user
// boundaries, so two maps generated from the same prompt must not collide.
func NewMapID(seed string) string {
	buf := make([]byte, 4)
	_, _ = crand.Read(buf)
	return slugify(seed) + "-" + hex.EncodeToString(buf)
}

// UIDGenerator derives node ids from titles ("<slug>-<hash>", numeric
// suffix on collision) and tracks every id it has handed out or been told
// about, so a tree never holds duplicates.
type UIDGenerator struct {
	used map[string]struct{}
}

// NewUIDGenerator creates a generator with optional pre-reserved ids,
// typically the ids already present in a stored tree.
func NewUIDGenerator(existing ...string) *UIDGenerator {
	g := &UIDGenerator{used: make(map[string]struct{}, len(existing)+8)}
	for _, uid := range existing {
		if uid = strings.TrimSpace(uid); uid != "" {
			g.used[uid] = struct{}{}
		}
	}
	return g
}

// Generate returns a unique id derived from title.
func (g *UIDGenerator) Generate(title string) string {
	if g == nil {
		g = NewUIDGenerator()
	}
	base := fmt.Sprintf("%s-%s", slugify(title), titleHash(title))
	id := base
	for n := 2; ; n++ {
		if _, taken := g.used[id]; !taken {
			break
		}
		id = fmt.Sprintf("%s-%d", base, n)
	}
	g.used[id] = struct{}{}
	return id
}

// CitationID returns a unique id for a citation, namespaced apart from
// node ids so a citation titled like its node never collides with it.
func (g *UIDGenerator) CitationID(title string) string {
	return g.Generate("cite-" + title)
}

func titleHash(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}

func slugify(s string) string {
	var b strings.Builder
	dash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "node"
	}
	if len(out) > maxSlugLen {
		out = strings.Trim(out[:maxSlugLen], "-")
	}
	return out
}
