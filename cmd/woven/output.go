package main

import (
	"fmt"
	"io"
	"os"
)

// Human-oriented status lines go to stderr so stdout stays clean for --json
// payloads that callers may want to pipe.
var stderr io.Writer = os.Stderr

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + ansiReset
}

func printMark(color, mark, format string, args ...any) {
	fmt.Fprintln(stderr, colorize(color, mark+" "+fmt.Sprintf(format, args...)))
}

func printSuccess(format string, args ...any) { printMark(ansiGreen, "✓", format, args...) }
func printError(format string, args ...any)   { printMark(ansiRed, "✗", format, args...) }
func printWarning(format string, args ...any) { printMark(ansiYellow, "⚠", format, args...) }
func printStep(format string, args ...any)    { printMark(ansiCyan, "→", format, args...) }

// printStatus renders an indented "Label: value" detail line under a summary.
func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(stderr, "  %s %s\n", colorize(ansiBold, label+":"), fmt.Sprintf(format, args...))
}
