// Package repl provides an interactive loop for exploring how Sage
// parses template snippets. Each line is parsed and the resulting tree
// is printed; nothing is ever evaluated.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"gopkg.in/yaml.v3"

	"github.com/sambeau/sage/pkg/sage/ast"
	serrors "github.com/sambeau/sage/pkg/sage/errors"
	"github.com/sambeau/sage/pkg/sage/parser"
)

const PROMPT = ">> "

// Sage keywords for tab completion
var completionWords = []string{
	"and", "or", "not", "if", "elif", "else", "endif",
	"for", "endfor", "in", "is", "as",
	"block", "endblock", "extends", "include", "import", "from",
	"macro", "endmacro", "call", "endcall", "filter", "endfilter",
	"print", "true", "false", "none",
}

// Start starts the REPL with line editing, history, and tab completion
func Start(in io.Reader, out io.Writer, version string) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)

	line.SetCompleter(func(line string) []string {
		return filterCompletions(line)
	})

	historyFile := filepath.Join(os.TempDir(), ".sage_history")
	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyFile); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(out, "sage %s — type a template line, :yaml to toggle tree dumps, :quit to exit\n", version)

	showYAML := false
	for {
		input, err := line.Prompt(PROMPT)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintln(out, "bye")
				return
			}
			fmt.Fprintf(out, "error reading input: %s\n", err)
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		switch input {
		case ":quit", ":q", "exit":
			fmt.Fprintln(out, "bye")
			return
		case ":yaml":
			showYAML = !showYAML
			fmt.Fprintf(out, "yaml dumps %s\n", onOff(showYAML))
			continue
		}

		// bare expressions are convenient: wrap anything that is not
		// already a tag in {{ }}
		source := input
		if !strings.HasPrefix(source, "{{") && !strings.HasPrefix(source, "{%") {
			source = "{{ " + source + " }}"
		}

		tpl, err := parser.Parse(source, "<repl>")
		if err != nil {
			if te, ok := err.(*serrors.TemplateError); ok {
				fmt.Fprintln(out, te.String())
			} else {
				fmt.Fprintln(out, err)
			}
			continue
		}

		if showYAML {
			dump, err := yaml.Marshal(describeBody(tpl.Body))
			if err != nil {
				fmt.Fprintf(out, "error dumping tree: %s\n", err)
				continue
			}
			fmt.Fprint(out, string(dump))
			continue
		}
		fmt.Fprintln(out, tpl.String())
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// describeBody renders statements as nested maps for YAML output
func describeBody(body []ast.Statement) []any {
	out := make([]any, len(body))
	for i, s := range body {
		out[i] = map[string]any{
			"line": s.Line(),
			"stmt": s.String(),
		}
	}
	return out
}

func filterCompletions(input string) []string {
	// complete only the final word so expressions keep their prefix
	idx := strings.LastIndexAny(input, " \t({[|,")
	prefix, word := "", input
	if idx >= 0 {
		prefix, word = input[:idx+1], input[idx+1:]
	}
	if word == "" {
		return nil
	}

	var completions []string
	for _, w := range completionWords {
		if strings.HasPrefix(w, word) {
			completions = append(completions, prefix+w)
		}
	}
	return completions
}
