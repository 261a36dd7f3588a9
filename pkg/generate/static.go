package generate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codecraft/aidoc/pkg/core"
)

const previewLength = 240

// Doc formats understood by the renderer.
const (
	FormatJSDoc    = "jsdoc"
	FormatJavadoc  = "javadoc"
	FormatGoogle   = "google"
	FormatNumPy    = "numpy"
	FormatReST     = "rest"
	FormatDocBlock = "docblock"
)

// StaticGenerator renders documentation from the synopsis alone, without
// calling any provider. Deterministic and always succeeds; it is the
// terminal fallback in a generator chain.
type StaticGenerator struct{}

// Compile-time interface check.
var _ core.Generator = StaticGenerator{}

// NewStatic creates the heuristic renderer.
func NewStatic() StaticGenerator {
	return StaticGenerator{}
}

// Generate renders a documentation stub for the request.
func (StaticGenerator) Generate(_ context.Context, req *core.Request) (*core.Result, error) {
	started := time.Now()
	syn := Analyze(req.Input())
	format := ResolveFormat(req.Language, req.Format)
	text := render(format, syn)
	return &core.Result{
		Text:      text,
		Preview:   Preview(text, previewLength),
		Provider:  "static",
		Format:    format,
		LatencyMs: time.Since(started).Milliseconds(),
	}, nil
}

// ResolveFormat picks a doc format: the requested one when given,
// otherwise the language convention.
func ResolveFormat(language, requested string) string {
	if requested != "" && requested != "auto" {
		return requested
	}
	switch strings.ToLower(language) {
	case "python":
		return FormatGoogle
	case "java", "kotlin":
		return FormatJavadoc
	case "javascript", "typescript", "javascriptreact", "typescriptreact":
		return FormatJSDoc
	case "php", "c", "cpp":
		return FormatDocBlock
	default:
		return FormatGoogle
	}
}

// Preview truncates text for listing surfaces.
func Preview(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

func render(format string, syn Synopsis) string {
	switch format {
	case FormatJSDoc, FormatJavadoc:
		return renderStarBlock(syn)
	case FormatNumPy:
		return renderNumPy(syn)
	case FormatReST:
		return renderReST(syn)
	case FormatDocBlock:
		return renderStarBlock(syn)
	default:
		return renderGoogle(syn)
	}
}

func summaryLine(syn Synopsis) string {
	switch syn.Kind {
	case "class":
		return fmt.Sprintf("Represents %s.", syn.Name)
	case "snippet":
		return "Documents this code snippet."
	default:
		return fmt.Sprintf("Performs the %s operation.", syn.Name)
	}
}

func renderStarBlock(syn Synopsis) string {
	var b strings.Builder
	b.WriteString("/**\n * ")
	b.WriteString(summaryLine(syn))
	b.WriteString("\n")
	for _, p := range syn.Params {
		fmt.Fprintf(&b, " * @param %s description\n", p)
	}
	if syn.Kind == "function" {
		b.WriteString(" * @returns result of the operation\n")
	}
	b.WriteString(" */")
	return b.String()
}

func renderGoogle(syn Synopsis) string {
	var b strings.Builder
	b.WriteString(summaryLine(syn))
	if len(syn.Params) > 0 {
		b.WriteString("\n\nArgs:\n")
		for _, p := range syn.Params {
			fmt.Fprintf(&b, "    %s: description\n", p)
		}
	}
	if syn.Kind == "function" {
		b.WriteString("\nReturns:\n    Result of the operation.")
	}
	return b.String()
}

func renderNumPy(syn Synopsis) string {
	var b strings.Builder
	b.WriteString(summaryLine(syn))
	if len(syn.Params) > 0 {
		b.WriteString("\n\nParameters\n----------\n")
		for _, p := range syn.Params {
			fmt.Fprintf(&b, "%s : type\n    description\n", p)
		}
	}
	return b.String()
}

func renderReST(syn Synopsis) string {
	var b strings.Builder
	b.WriteString(summaryLine(syn))
	b.WriteString("\n")
	for _, p := range syn.Params {
		fmt.Fprintf(&b, "\n:param %s: description", p)
	}
	if syn.Kind == "function" {
		b.WriteString("\n:returns: result of the operation")
	}
	return b.String()
}
