package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
)

const sectionWidth = 46

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// colorEnabled is decided once at startup; piped output stays plain.
var colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

func paint(code, s string) string {
	if !colorEnabled {
		return s
	}
	return code + s + reset
}

func emit(symbol, color, tag, msg string) {
	ts := paint(dim, time.Now().Format("15:04:05"))
	fmt.Printf("%s %s %s %s\n", ts, paint(color, symbol), paint(bold, "["+tag+"]"), msg)
}

// Info logs a neutral progress message.
func Info(tag, msg string) { emit("*", cyan, tag, msg) }

// Success logs a completed step.
func Success(tag, msg string) { emit("+", green, tag, msg) }

// Warn logs a recoverable problem.
func Warn(tag, msg string) { emit("!", yellow, tag, msg) }

// Error logs a failure.
func Error(tag, msg string) { emit("x", red, tag, msg) }

// Section prints a titled divider ahead of a block of Stats lines.
func Section(title string) {
	line := "-- " + title + " "
	if pad := sectionWidth - len(line); pad > 0 {
		line += strings.Repeat("-", pad)
	}
	fmt.Printf("\n%s\n", paint(bold, line))
}

// Stats prints one aligned label/value line under a Section.
func Stats(label string, value interface{}) {
	fmt.Printf("   %s %v\n", paint(dim, fmt.Sprintf("%-20s", label)), value)
}

// Banner prints the startup banner with the build version.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	top := "+" + strings.Repeat("-", sectionWidth-2) + "+"
	fmt.Println(paint(cyan, top))
	fmt.Println(paint(cyan, fmt.Sprintf("| %-*s |", sectionWidth-4, "eve-hauler "+version)))
	fmt.Println(paint(cyan, fmt.Sprintf("| %-*s |", sectionWidth-4, "inter-hub market arbitrage pipeline")))
	fmt.Println(paint(cyan, top))
}
