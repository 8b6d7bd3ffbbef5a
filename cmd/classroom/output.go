package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// structured reports whether output is json or yaml.
func (a *app) structured() bool {
	return a.output == outputJSON || a.output == outputYAML
}

// printStructured writes v as JSON or YAML according to --output.
func (a *app) printStructured(v interface{}) error {
	if a.output == outputYAML {
		return a.printYAML(v)
	}
	return a.printJSON(v)
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printYAML(v interface{}) error {
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) printError(err error) {
	fmt.Fprintf(a.errOut, "%s %v\n", a.colorRed("Error:"), err)
}

func (a *app) newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
}

func printTableHeader(w *tabwriter.Writer, cols ...string) {
	fmt.Fprintln(w, strings.Join(cols, "\t"))
}

func (a *app) colorize(code, s string) string {
	if !a.color {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func (a *app) colorGreen(s string) string  { return a.colorize("32", s) }
func (a *app) colorYellow(s string) string { return a.colorize("33", s) }
func (a *app) colorRed(s string) string    { return a.colorize("31", s) }
func (a *app) colorBold(s string) string   { return a.colorize("1", s) }

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// formatMillis renders an epoch-milliseconds timestamp in local time.
func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
