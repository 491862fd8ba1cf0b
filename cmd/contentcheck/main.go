// contentcheck validates every registered content document under a content
// root and reports per-file results. It is the CI gate for content changes.
//
// Exit codes: 0 all documents pass, 1 one or more documents fail,
// 2 usage or system error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/commonshub/commonshub-web/internal/content"
	v "github.com/commonshub/commonshub-web/internal/version"
)

const (
	exitOK         = 0
	exitValidation = 1
	exitUsage      = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		contentRoot string
		jsonOut     bool
		noColor     bool
		showVersion bool
	)
	fs := flag.NewFlagSet("contentcheck", flag.ContinueOnError)
	fs.StringVar(&contentRoot, "content-root", "content", "directory of JSON content documents")
	fs.BoolVar(&jsonOut, "json", false, "emit the validation report as JSON")
	fs.BoolVar(&noColor, "no-color", false, "disable colored output")
	fs.BoolVar(&showVersion, "V", false, "Print version information and exit")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return exitUsage
	}

	if showVersion {
		vi := v.Get()
		fmt.Printf("contentcheck %s (commit=%s, go=%s)\n", vi.Version, vi.Commit, vi.GoVersion)
		return exitOK
	}

	if noColor {
		color.NoColor = true
	}

	fi, err := os.Stat(contentRoot)
	if err != nil || !fi.IsDir() {
		fmt.Fprintf(os.Stderr, "contentcheck: content root %q is not a directory\n", contentRoot)
		return exitUsage
	}

	loader, err := content.NewLoader(contentRoot)
	if err != nil {
		fmt.Fprintln(os.Stderr, "contentcheck:", err)
		return exitUsage
	}

	report, err := content.ValidateAll(context.Background(), loader, content.Default())
	if err != nil {
		fmt.Fprintln(os.Stderr, "contentcheck:", err)
		return exitUsage
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintln(os.Stderr, "contentcheck:", err)
			return exitUsage
		}
	} else {
		printReport(report)
	}

	if !report.OK() {
		return exitValidation
	}
	return exitOK
}

var (
	passMark = color.New(color.FgGreen, color.Bold).SprintFunc()
	failMark = color.New(color.FgRed, color.Bold).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
	hint     = color.New(color.FgYellow).SprintFunc()
)

func printReport(report *content.Report) {
	fmt.Printf("checking content under %s\n\n", report.Root)

	for _, res := range report.Results {
		if res.OK() {
			fmt.Printf("  %s %s\n", passMark("PASS"), res.Filename)
			continue
		}

		fmt.Printf("  %s %s %s\n", failMark("FAIL"), res.Filename, dim("("+res.Err.Kind.String()+")"))
		fmt.Printf("        %s\n", res.Err.Msg)
		for _, viol := range res.Err.Violations {
			loc := viol.Path
			if loc == "" {
				loc = "(root)"
			}
			fmt.Printf("        %s: expected %s, got %s\n", loc, viol.Expected, viol.Actual)
		}
		for _, s := range res.Err.Suggestions {
			fmt.Printf("        %s %s\n", hint("hint:"), s)
		}
	}

	fmt.Println()
	if report.OK() {
		fmt.Printf("%s %d file(s) checked\n", passMark("OK"), len(report.Results))
	} else {
		fmt.Printf("%s %d of %d file(s) failing\n", failMark("FAIL"), report.Failed(), len(report.Results))
	}
}
