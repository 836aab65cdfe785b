package agent

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// computeFingerprint hashes an agent's primer and registry contents into a
// stable identifier used to reattach a rehydrated UserFunction/UserInstance
// back to the Agent it was defined under. Grounded on
// original_source/tic/agent/fingerprint.py's compute_agent_fingerprint
// (file absent from the retrieval pack; re-derived from its call site in
// core.py, which passes primer + the three registries). blake2b replaces
// the likely sha256 of the original (nakama's own core_storage.go reaches
// for crypto/sha256 for content hashing) because it gives the same
// collision-resistance with less ceremony; see DESIGN.md's internal/agent
// entry.
func computeFingerprint(primer string, fns map[string]*RegisteredFn, classes map[string]*RegisteredClass, modules map[string]*RegisteredModule) string {
	var sb strings.Builder
	sb.WriteString("primer:")
	sb.WriteString(primer)
	sb.WriteString("\n")

	fnNames := sortedKeysFn(fns)
	for _, name := range fnNames {
		fmt.Fprintf(&sb, "fn:%s:%s\n", name, fns[name].Visibility)
	}

	clsNames := sortedKeysCls(classes)
	for _, name := range clsNames {
		c := classes[name]
		fmt.Fprintf(&sb, "cls:%s:%s:%v:%d:%d\n", name, c.Visibility, c.Constructable, len(c.Attrs), len(c.Methods))
	}

	modNames := sortedKeysMod(modules)
	for _, name := range modNames {
		m := modules[name]
		fmt.Fprintf(&sb, "mod:%s:%s:%d:%d:%d\n", name, m.Visibility, len(m.Fns), len(m.Consts), len(m.Classes))
	}

	sum := blake2b.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])
}

func sortedKeysFn(m map[string]*RegisteredFn) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeysCls(m map[string]*RegisteredClass) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeysMod(m map[string]*RegisteredModule) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
