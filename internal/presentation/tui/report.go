package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/lattice/pkg/domain"
)

// CompileReport formats a compile result as markdown.
func CompileReport(res domain.CompileResult) string {
	var sb strings.Builder

	name := res.ManifestName
	if name == "" {
		name = res.ManifestID
	}
	status := "✅ compiled"
	if !res.Success {
		status = "❌ failed"
	}
	fmt.Fprintf(&sb, "# %s\n\n", name)
	fmt.Fprintf(&sb, "**Status:** %s  \n", status)
	fmt.Fprintf(&sb, "**Nodes:** %d · **Edges:** %d", res.NodeCount, res.EdgeCount)
	if res.EntryNode != "" {
		fmt.Fprintf(&sb, " · **Entry:** `%s`", res.EntryNode)
	}
	fmt.Fprintf(&sb, "  \n**Time:** %.2f ms\n", res.CompilationTimeMs)

	section(&sb, "Errors", res.Errors)
	section(&sb, "Warnings", res.Warnings)

	if len(res.CompiledNodeIDs) > 0 {
		sb.WriteString("\n## Compiled nodes\n\n")
		for _, id := range res.CompiledNodeIDs {
			fmt.Fprintf(&sb, "- `%s`\n", id)
		}
	}
	return sb.String()
}

// RunReport formats a run result as markdown.
func RunReport(res domain.RunResult) string {
	var sb strings.Builder
	if !res.Success {
		fmt.Fprintf(&sb, "# Run failed\n\n```\n%s\n```\n", res.Error)
		return sb.String()
	}
	sb.WriteString("# Run finished\n\n")
	if res.State == nil {
		return sb.String()
	}
	fmt.Fprintf(&sb, "**Run:** `%s` · **Last node:** `%s`\n", res.State.RunID, res.State.CurrentNode)
	if len(res.State.Messages) > 0 {
		sb.WriteString("\n## Messages\n\n")
		for _, m := range res.State.Messages {
			fmt.Fprintf(&sb, "- **%s:** %s\n", m.Role, m.Content)
		}
	}
	return sb.String()
}

func section(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(sb, "\n## %s\n\n", title)
	for _, it := range items {
		fmt.Fprintf(sb, "- %s\n", it)
	}
}
