package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"ipcpair/internal/session"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 12

func printSummary(w io.Writer, result session.Result, colorize bool) {
	for _, line := range renderSectionHeader("Session "+result.SessionID, colorize) {
		fmt.Fprintln(w, line)
	}

	rows := make([][]string, 0, len(result.Exchanges))
	for i, ex := range result.Exchanges {
		rows = append(rows, []string{strconv.Itoa(i + 1), ex.Sent, ex.Reply})
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable([]string{"#", "Sent", "Reply"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}))
	}

	if errors.Is(result.LoopErr, session.ErrReplyFailed) {
		fmt.Fprintln(w, renderStatusLine("Replies", statusWarn, result.LoopErr.Error(), colorize))
	} else {
		fmt.Fprintln(w, renderStatusLine("Replies", statusOK, fmt.Sprintf("%d received", len(result.Exchanges)), colorize))
	}
	if result.ChildSucceeded() {
		fmt.Fprintln(w, renderStatusLine("Child", statusOK, fmt.Sprintf("pid %d exited 0", result.ChildPID), colorize))
	} else {
		fmt.Fprintln(w, renderStatusLine("Child", statusError, fmt.Sprintf("pid %d exited %d", result.ChildPID, result.ExitCode), colorize))
	}
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", statusText)
	if colorize {
		return statusKindColor(kind) + base + ansiReset
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
