package model

import (
	"regexp"
	"strings"
)

// Ecosystem identifies a package-management convention
type Ecosystem string

const (
	Python Ecosystem = "python"
	Node   Ecosystem = "node"
	Java   Ecosystem = "java"
	DotNet Ecosystem = "dotnet"
	Go     Ecosystem = "go"
)

// Ecosystems lists every supported ecosystem in report order.
var Ecosystems = []Ecosystem{DotNet, Go, Java, Node, Python}

func (e Ecosystem) String() string {
	return string(e)
}

// Valid reports whether e is one of the supported ecosystems.
func (e Ecosystem) Valid() bool {
	for _, known := range Ecosystems {
		if e == known {
			return true
		}
	}
	return false
}

var pep503Separators = regexp.MustCompile(`[-_.]+`)

// NormalizeName folds a package name the way the ecosystem's registry does,
// so that two spellings of the same package share one lookup key.
// Normalizing an already normalized name returns it unchanged.
func NormalizeName(eco Ecosystem, name string) string {
	name = strings.TrimSpace(name)
	switch eco {
	case Python:
		// Extras are not part of the distribution name: requests[socks] -> requests
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = strings.TrimSpace(name[:i])
		}
		return pep503Separators.ReplaceAllString(strings.ToLower(name), "-")
	case Node, DotNet:
		return strings.ToLower(name)
	default:
		// Maven coordinates and Go module paths are case sensitive
		return name
	}
}
