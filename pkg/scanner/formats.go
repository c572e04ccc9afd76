package scanner

import (
	"path/filepath"
	"strings"

	"github.com/sambabib/depdoctor/pkg/model"
)

// Requirement is a (name, constraint) pair as written in a manifest.
type Requirement struct {
	Name       string
	Constraint string
	Scope      model.Scope
}

// Parser extracts requirements from the raw content of one manifest.
type Parser func(content []byte) ([]Requirement, error)

// Format describes one supported manifest syntax.
type Format struct {
	Tag       string
	Ecosystem model.Ecosystem
	Match     func(filename string) bool
	Parse     Parser
}

// Formats is the table of supported manifest formats. Supporting a new
// ecosystem means adding one entry here and one parser.
var Formats = []Format{
	{Tag: "requirements.txt", Ecosystem: model.Python, Match: globMatch("requirements*.txt"), Parse: ParseRequirements},
	{Tag: "pyproject.toml", Ecosystem: model.Python, Match: exactMatch("pyproject.toml"), Parse: ParsePyProject},
	{Tag: "Pipfile", Ecosystem: model.Python, Match: exactMatch("Pipfile"), Parse: ParsePipfile},
	{Tag: "package.json", Ecosystem: model.Node, Match: exactMatch("package.json"), Parse: ParsePackageJSON},
	{Tag: "pom.xml", Ecosystem: model.Java, Match: exactMatch("pom.xml"), Parse: ParsePom},
	{Tag: "csproj", Ecosystem: model.DotNet, Match: extMatch(".csproj"), Parse: ParseCsproj},
	{Tag: "packages.config", Ecosystem: model.DotNet, Match: exactMatch("packages.config"), Parse: ParsePackagesConfig},
	{Tag: "go.mod", Ecosystem: model.Go, Match: exactMatch("go.mod"), Parse: ParseGoMod},
}

// Recognize returns the format whose filename matcher accepts name.
func Recognize(name string) (Format, bool) {
	for _, f := range Formats {
		if f.Match(name) {
			return f, true
		}
	}
	return Format{}, false
}

func exactMatch(want string) func(string) bool {
	return func(name string) bool { return name == want }
}

func extMatch(ext string) func(string) bool {
	return func(name string) bool { return strings.EqualFold(filepath.Ext(name), ext) }
}

func globMatch(pattern string) func(string) bool {
	return func(name string) bool {
		ok, _ := filepath.Match(pattern, strings.ToLower(name))
		return ok
	}
}
