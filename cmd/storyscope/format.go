package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
)

// formatBuildText prints the fragment, or the merged module when one was
// produced.
func formatBuildText(w io.Writer, b CLIBuild) {
	if b.Module != "" {
		fmt.Fprint(w, b.Module)
		return
	}
	if b.Fragment != nil {
		fmt.Fprint(w, b.Fragment.String())
	}
}

// formatIndexText formats an index summary as aligned columns.
func formatIndexText(w io.Writer, s CLIIndexSummary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENTATION\tCOMPANION\tEXAMPLES\tCACHED")
	for _, b := range s.Builds {
		companion := b.Companion
		if companion == "" {
			companion = "-"
		}
		n := 0
		if b.Fragment != nil {
			n = len(b.Fragment.Examples)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\n", relTo(s.Root, b.Documentation), relTo(s.Root, companion), n, b.CacheHit)
	}
	tw.Flush()
}

// formatFragmentsText formats cached fragments as aligned columns.
func formatFragmentsText(w io.Writer, frags []CLIFragment) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENTATION\tEXAMPLES\tIMPORTS\tBUILT")
	for _, f := range frags {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
			f.Documentation, strings.Join(f.Examples, ","), len(f.Imports), f.BuiltAt.Local().Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

// formatExamplesText prints each located example under a header line.
func formatExamplesText(w io.Writer, exs []CLIExample) {
	for i, ex := range exs {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "# %s (%s)\n%s\n", ex.Key, ex.Documentation, ex.Source)
	}
}

// formatChecksText prints diagnostics in "file: script: example: message"
// form.
func formatChecksText(w io.Writer, checks []CLICheck) {
	for _, c := range checks {
		for _, d := range c.Diagnostics {
			fmt.Fprintf(w, "%s: %s\n", c.Documentation, d)
		}
	}
}

// outputResult writes result to stdout in the selected format.
func outputResult(result CLIResult) error {
	if flagFormat == "text" {
		return outputResultText(os.Stdout, result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIBuild:
		formatBuildText(w, v)
	case CLIIndexSummary:
		formatIndexText(w, v)
	case []CLIFragment:
		formatFragmentsText(w, v)
	case []CLIExample:
		formatExamplesText(w, v)
	case []CLICheck:
		formatChecksText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	result := CLIResult{
		Command: command,
		Error:   err.Error(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(result)
	return err
}

func relTo(root, path string) string {
	if root == "" || path == "-" {
		return path
	}
	if rel, ok := strings.CutPrefix(path, root+string(os.PathSeparator)); ok {
		return rel
	}
	return path
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
