package weave

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// fingerprint digests everything that determines the node layout of a
// model. Two models with equal fingerprints read and write identical nodes.
func fingerprint(m *Model) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%d", qualifiedName(m.Type), m.Category, m.Rank)
	if m.Elem != nil {
		fmt.Fprintf(&b, "|elem=%s", qualifiedName(m.Elem))
	}
	if m.Key != nil {
		fmt.Fprintf(&b, "|key=%s", qualifiedName(m.Key))
	}
	switch {
	case m.codec != nil:
		fmt.Fprintf(&b, "|codec=%T", m.codec)
	case m.selfDesc:
		b.WriteString("|self")
	}
	for _, mem := range m.Members {
		fmt.Fprintf(&b, "\n%s:%s:%s:%s:%t:%d",
			mem.Name, mem.Location, mem.Inclusion, qualifiedName(mem.Type), mem.ReadOnly, mem.CtorArg)
	}
	for _, p := range m.ctor.params {
		fmt.Fprintf(&b, "\nctor:%s:%s", p.Name, p.Source)
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
