// Package email holds address helpers shared by the identity validator and
// the orchestrator. All comparisons in this system are case-insensitive, so
// Normalize is applied once at the boundary and everything downstream assumes
// lowercased input.
package email

import (
	"strings"
	"unicode"
)

// Normalize trims whitespace and lowercases an address for comparison.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Domain returns the part after '@', lowercased, or "" when the address has
// no domain part.
func Domain(addr string) string {
	addr = Normalize(addr)
	at := strings.LastIndexByte(addr, '@')
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return addr[at+1:]
}

// Mask hides an address for conflict messages: the first three characters of
// the local part are kept, the rest replaced, and the domain left intact so
// support staff can still attribute the conflict.
//
//	Mask("alice@acme.com") == "ali***@acme.com"
//	Mask("ab@acme.com")    == "ab***@acme.com"
func Mask(addr string) string {
	addr = Normalize(addr)
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		if len(addr) > 3 {
			return addr[:3] + "***"
		}
		return addr + "***"
	}
	local, domain := addr[:at], addr[at:]
	if len(local) > 3 {
		local = local[:3]
	}
	return local + "***" + domain
}

// DeriveName splits an address's local part into a (first, last) name pair
// for snapshots submitted without explicit names.
func DeriveName(addr string) (string, string) {
	localPart := addr
	if at := strings.IndexByte(addr, '@'); at > 0 {
		localPart = addr[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})

	if len(parts) == 0 {
		return "User", "User"
	}

	first := capitalize(parts[0])
	last := "User"
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}

	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}

	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
