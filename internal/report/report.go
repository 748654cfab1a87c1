// Package report renders the prompt usage report. Plain text, no decisions:
// everything interesting happened in the resolver.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/flowpbx/promptaudit/internal/usage"
	"github.com/flowpbx/promptaudit/internal/xapi"
)

// Render writes the detailed usage section and the flat list of used prompt
// filenames, both in lexicographic filename order.
func Render(w io.Writer, usages usage.Map) {
	if len(usages) == 0 {
		fmt.Fprintln(w, "No prompt files in use were found.")
		return
	}

	filenames := make([]string, 0, len(usages))
	for filename := range usages {
		filenames = append(filenames, filename)
	}
	sort.Strings(filenames)

	fmt.Fprintln(w, "Detailed list of used prompt filenames:")
	for _, filename := range filenames {
		fmt.Fprintf(w, "\n%s:\n", filename)
		for _, entry := range usages[filename] {
			fmt.Fprintf(w, "  - %s\n", entry)
		}
	}

	fmt.Fprintln(w, "\nUsed prompt filenames:")
	for _, filename := range filenames {
		fmt.Fprintf(w, " - %s\n", filename)
	}
}

// RenderCallFlowApps lists each call flow app that has deployed files. These
// files are reported on their own, not cross-referenced against prompts.
func RenderCallFlowApps(w io.Writer, apps []xapi.CallFlowApp) {
	fmt.Fprintln(w, "\nCall Flow Apps Files:")
	for _, app := range apps {
		if len(app.Files) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s %s:\n", app.Number, app.Name)
		for _, file := range app.Files {
			fmt.Fprintf(w, "  - File: %s\n", file)
		}
	}
}
