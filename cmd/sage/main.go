// Command sage parses Sage templates and reports on them: syntax
// checking, tree dumps, watch mode, and an interactive REPL. It never
// renders anything; rendering belongs to the host application.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/sambeau/sage/pkg/sage/ast"
	serrors "github.com/sambeau/sage/pkg/sage/errors"
	"github.com/sambeau/sage/pkg/sage/parser"
	"github.com/sambeau/sage/pkg/sage/repl"
)

// Version is set at compile time via -ldflags
var Version = "0.3.0"

var (
	// Display flags
	helpFlag        = flag.Bool("h", false, "Show help message")
	helpLongFlag    = flag.Bool("help", false, "Show help message")
	versionFlag     = flag.Bool("V", false, "Show version information")
	versionLongFlag = flag.Bool("version", false, "Show version information")

	// Parse flags
	evalFlag     = flag.String("e", "", "Parse an inline template string")
	evalLongFlag = flag.String("eval", "", "Parse an inline template string")
	checkFlag    = flag.Bool("check", false, "Check syntax only, report nothing on success")
	astFlag      = flag.Bool("ast", false, "Dump the parse tree as YAML")
	jsonFlag     = flag.Bool("json", false, "Report errors as JSON")
	watchFlag    = flag.Bool("watch", false, "Watch template files and re-check on change")
	configFlag   = flag.String("config", "", "Config file path (default: sage.yaml if present)")
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "repl" {
		repl.Start(os.Stdin, os.Stdout, Version)
		return
	}

	flag.Usage = printHelp
	flag.Parse()

	if *helpFlag || *helpLongFlag {
		printHelp()
		os.Exit(0)
	}
	if *versionFlag || *versionLongFlag {
		fmt.Printf("sage version %s\n", Version)
		os.Exit(0)
	}

	cfg, err := loadSelectedConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	exts := cfg.Extensions()

	evalCode := *evalFlag
	if evalCode == "" {
		evalCode = *evalLongFlag
	}

	switch {
	case evalCode != "":
		tpl, err := parser.Parse(evalCode, "<inline>", exts...)
		if err != nil {
			reportError(err)
			os.Exit(1)
		}
		printResult(tpl)
	case *watchFlag:
		files := flag.Args()
		if len(files) == 0 {
			fmt.Fprintln(os.Stderr, "sage: --watch needs at least one template file")
			os.Exit(1)
		}
		watchFiles(files, exts)
	default:
		files := flag.Args()
		if len(files) == 0 {
			printHelp()
			os.Exit(1)
		}
		failed := false
		for _, file := range files {
			if !parseFile(file, exts) {
				failed = true
			}
		}
		if failed {
			os.Exit(1)
		}
	}
}

func loadSelectedConfig() (*Config, error) {
	if *configFlag != "" {
		return loadConfig(*configFlag, true)
	}
	return loadConfig("sage.yaml", false)
}

// parseFile parses one template file, reporting errors; returns false
// on failure
func parseFile(file string, exts []parser.Extension) bool {
	source, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sage: %s\n", err)
		return false
	}
	tpl, err := parser.Parse(string(source), file, exts...)
	if err != nil {
		reportError(err)
		return false
	}
	printResult(tpl)
	return true
}

// printResult handles the success output modes. --check stays silent;
// --ast dumps the tree; the default echoes the canonical form.
func printResult(tpl *ast.Template) {
	switch {
	case *checkFlag:
	case *astFlag:
		dump, err := yaml.Marshal(describeTemplate(tpl))
		if err != nil {
			fmt.Fprintf(os.Stderr, "sage: dumping tree: %s\n", err)
			return
		}
		fmt.Print(string(dump))
	default:
		fmt.Println(tpl.String())
	}
}

// describeTemplate renders the tree as nested maps for the YAML dump
func describeTemplate(tpl *ast.Template) map[string]any {
	body := make([]any, len(tpl.Body))
	for i, s := range tpl.Body {
		body[i] = map[string]any{
			"line": s.Line(),
			"stmt": s.String(),
		}
	}
	return map[string]any{
		"template": tpl.Filename,
		"body":     body,
	}
}

func reportError(err error) {
	if *jsonFlag {
		if te, ok := err.(*serrors.TemplateError); ok {
			if data, jerr := te.ToJSON(); jerr == nil {
				fmt.Fprintln(os.Stderr, string(data))
				return
			}
		}
	}
	fmt.Fprintln(os.Stderr, err)
}

// watchFiles re-parses templates whenever they change on disk
func watchFiles(files []string, exts []parser.Extension) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sage: %s\n", err)
		os.Exit(1)
	}
	defer watcher.Close()

	watched := make(map[string]bool)
	for _, file := range files {
		abs, err := filepath.Abs(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sage: %s\n", err)
			os.Exit(1)
		}
		watched[abs] = true
		// watch the directory: editors often replace files on save,
		// which drops a watch held on the file itself
		if err := watcher.Add(filepath.Dir(abs)); err != nil {
			fmt.Fprintf(os.Stderr, "sage: %s\n", err)
			os.Exit(1)
		}
	}

	check := func(file string) {
		if _, err := os.Stat(file); err != nil {
			return
		}
		rel := file
		if r, err := filepath.Rel(".", file); err == nil {
			rel = r
		}
		source, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sage: %s\n", err)
			return
		}
		if _, err := parser.Parse(string(source), rel, exts...); err != nil {
			reportError(err)
			return
		}
		fmt.Printf("%s: ok\n", rel)
	}

	for _, file := range files {
		abs, _ := filepath.Abs(file)
		check(abs)
	}

	fmt.Println("watching for changes — ctrl-c to stop")
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !watched[event.Name] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				check(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			fmt.Fprintf(os.Stderr, "sage: watch: %s\n", err)
		}
	}
}

func printHelp() {
	fmt.Println(`sage — template parser

Usage:
  sage [flags] <template>...
  sage repl

Flags:
  -e, --eval <src>   Parse an inline template string
  --check            Check syntax only, report nothing on success
  --ast              Dump the parse tree as YAML
  --json             Report errors as JSON
  --watch            Watch template files and re-check on change
  --config <file>    Config file path (default: sage.yaml if present)
  -V, --version      Show version information
  -h, --help         Show this help`)
}
