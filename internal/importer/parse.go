package importer

import (
	"regexp"
	"strings"
)

// switchRef is one switch named in a Switch_IP cell.
type switchRef struct {
	IP   string
	Name string
}

var (
	leadingIPv4 = regexp.MustCompile(`^(\d+\.\d+\.\d+\.\d+)`)
	parenName   = regexp.MustCompile(`\(([^)]+)\)`)
)

// parseSwitchList splits a cell such as "10.1.1.5 (Core), 10.1.1.6" into
// switches. Entries are separated by commas or semicolons; the name comes
// from the parentheses or defaults to "SW-<ip>". Entries that do not start
// with an IPv4 address are dropped.
func parseSwitchList(cell string) []switchRef {
	parts := strings.FieldsFunc(cell, func(r rune) bool { return r == ',' || r == ';' })

	refs := make([]switchRef, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		m := leadingIPv4.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		ref := switchRef{IP: m[1], Name: "SW-" + m[1]}
		if n := parenName.FindStringSubmatch(part); n != nil {
			ref.Name = strings.TrimSpace(n[1])
		}
		refs = append(refs, ref)
	}
	return refs
}

// firstIP keeps the first address of a cell like "10.1.1.1/24 10.1.1.2",
// without its prefix length.
func firstIP(cell string) string {
	fields := strings.Fields(cell)
	if len(fields) == 0 {
		return ""
	}
	ip, _, _ := strings.Cut(fields[0], "/")
	return ip
}

// subnet24 returns the first three octets of an IPv4 address, or "".
func subnet24(ip string) string {
	i := strings.LastIndexByte(ip, '.')
	if i <= 0 || strings.Count(ip, ".") != 3 {
		return ""
	}
	return ip[:i]
}
