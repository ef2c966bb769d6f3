package main

import (
	"cmp"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

const modulePath = "electionkeeper"

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists what a layer of a context module may import besides the
// standard library. Paths starting with "/" are relative to the module prefix.
type layerRule struct {
	allowed []string
}

var layerRules = map[string]layerRule{
	"domain":      {allowed: []string{"/domain"}},
	"ports":       {allowed: []string{"/domain", modulePath + "/contracts"}},
	"application": {allowed: []string{"/application", "/domain", "/ports", modulePath + "/contracts"}},
}

func main() {
	violations := collectViolations("contexts")
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	slices.SortFunc(violations, func(a violation, b violation) int {
		return cmp.Or(
			cmp.Compare(a.File, b.File),
			cmp.Compare(a.Line, b.Line),
			cmp.Compare(a.Import, b.Import),
		)
	})
	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		normalized := filepath.ToSlash(path)
		parts := strings.Split(normalized, "/")
		if len(parts) < 4 || parts[0] != "contexts" {
			return nil
		}
		modulePrefix := modulePath + "/" + strings.Join(parts[:3], "/")
		violations = append(violations, validateFile(path, normalized, parts[3], modulePrefix)...)
		return nil
	})
	return violations
}

func validateFile(path string, normalizedPath string, layer string, modulePrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalizedPath, Line: 1, Rule: "file must parse"}}
	}

	rule, layered := layerRules[layer]
	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		report := func(reason string) {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   fset.Position(imp.Pos()).Line,
				Import: importPath,
				Rule:   reason,
			})
		}

		if strings.HasPrefix(importPath, modulePath+"/contexts/") && !hasPrefix(importPath, modulePrefix) {
			report("cross-module imports are forbidden")
		}
		if !layered {
			continue
		}
		if strings.Contains(importPath, "/adapters/") {
			report(layer + " must not import adapters")
		}
		if hasPrefix(importPath, modulePath+"/internal") {
			report(layer + " must not import runtime infrastructure")
		}
		if !isStdlib(importPath) && !rule.allows(importPath, modulePrefix) {
			report(layer + " import is outside explicit allowlist")
		}
	}
	return violations
}

func (r layerRule) allows(importPath string, modulePrefix string) bool {
	for _, allowed := range r.allowed {
		if strings.HasPrefix(allowed, "/") {
			allowed = modulePrefix + allowed
		}
		if hasPrefix(importPath, allowed) {
			return true
		}
	}
	return false
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first, _, _ := strings.Cut(importPath, "/")
	return !strings.Contains(first, ".")
}
