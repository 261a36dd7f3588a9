package generate

import (
	"regexp"
	"strings"
)

// Synopsis is a heuristic structural summary of a code snippet. It seeds
// provider prompts and the static renderer; it is not a parser and does
// not need to be right, only useful.
type Synopsis struct {
	Name   string
	Kind   string // "function", "class", or "snippet"
	Params []string
}

var (
	functionPattern = regexp.MustCompile(`(?m)(?:function|func|def|fn|sub)\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)`)
	methodPattern   = regexp.MustCompile(`(?m)^\s*(?:public|private|protected|static|\s)*[A-Za-z_<>\[\]]+\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*\{`)
	classPattern    = regexp.MustCompile(`(?m)(?:class|interface|struct|trait)\s+([A-Za-z_][A-Za-z0-9_]*)`)
	arrowPattern    = regexp.MustCompile(`(?m)(?:const|let|var)\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*=\s*(?:async\s*)?\(([^)]*)\)\s*=>`)
)

// Analyze extracts a best-effort synopsis from a snippet.
func Analyze(code string) Synopsis {
	if m := functionPattern.FindStringSubmatch(code); m != nil {
		return Synopsis{Name: m[1], Kind: "function", Params: splitParams(m[2])}
	}
	if m := arrowPattern.FindStringSubmatch(code); m != nil {
		return Synopsis{Name: m[1], Kind: "function", Params: splitParams(m[2])}
	}
	if m := classPattern.FindStringSubmatch(code); m != nil {
		return Synopsis{Name: m[1], Kind: "class"}
	}
	if m := methodPattern.FindStringSubmatch(code); m != nil {
		return Synopsis{Name: m[1], Kind: "function", Params: splitParams(m[2])}
	}
	return Synopsis{Name: "snippet", Kind: "snippet"}
}

func splitParams(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	params := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		// Strip default values and type annotations to keep the bare name.
		if i := strings.IndexAny(p, "=:"); i >= 0 {
			p = strings.TrimSpace(p[:i])
		}
		// "int x" / "String name" style declarations keep the last token.
		if fields := strings.Fields(p); len(fields) > 1 {
			p = fields[len(fields)-1]
		}
		p = strings.TrimLeft(p, "*&$.")
		if p != "" {
			params = append(params, p)
		}
	}
	return params
}
