package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"syncer/internal/deps"
	"syncer/internal/ipc"
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

const (
	statusLabelWidth = 14
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
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
	case statusInfo:
		return ansiBlue
	default:
		return ""
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

// daemonStatusLines renders the "Daemon" section of `syncer status`.
func daemonStatusLines(status *ipc.StatusResponse, now time.Time, colorize bool) []string {
	var lines []string

	if status.Running {
		detail := fmt.Sprintf("pid %d", status.PID)
		if !status.StartedAt.IsZero() {
			detail += ", up " + formatAge(status.StartedAt, now)
		}
		lines = append(lines, renderStatusLine("Daemon", statusOK, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusError, "not running", colorize))
	}

	lines = append(lines, renderStatusLine("Pipe", statusInfo, status.PipePath, colorize))
	lines = append(lines, renderStatusLine("Queue", statusInfo,
		fmt.Sprintf("%s pending, high-water %s", formatCount(int64(status.QueueLength)), formatCount(int64(status.QueueHighWater))),
		colorize))

	dispatch := status.Dispatch
	kind := statusOK
	if dispatch.Failures > 0 {
		kind = statusWarn
	}
	detail := fmt.Sprintf("%s batches, %s events, %s units, %s failures",
		formatCount(dispatch.Batches), formatCount(dispatch.Events), formatCount(dispatch.Units), formatCount(dispatch.Failures))
	if dispatch.Skipped > 0 {
		detail += fmt.Sprintf(", %s malformed", formatCount(dispatch.Skipped))
	}
	if !dispatch.LastBatch.IsZero() {
		detail += ", last " + formatAge(dispatch.LastBatch, now) + " ago"
	}
	lines = append(lines, renderStatusLine("Dispatch", kind, detail, colorize))

	prof := status.Profiler
	if prof.Enabled {
		detail := fmt.Sprintf("%s samples over %s frames", formatCount(prof.Samples), formatCount(int64(prof.Frames)))
		if !prof.LastReport.IsZero() {
			detail += fmt.Sprintf(", report %s ago (%s nodes)", formatAge(prof.LastReport, now), formatCount(int64(prof.Nodes)))
		}
		lines = append(lines, renderStatusLine("Profiler", statusInfo, detail, colorize))
	} else {
		lines = append(lines, renderStatusLine("Profiler", statusInfo, "disabled", colorize))
	}

	if status.HistoryPath != "" {
		lines = append(lines, renderStatusLine("History", statusInfo, status.HistoryPath, colorize))
	} else {
		lines = append(lines, renderStatusLine("History", statusInfo, "disabled", colorize))
	}
	return lines
}

func taskRows(tasks []ipc.TaskState) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		lastErr := task.LastError
		if i := strings.IndexByte(lastErr, '\n'); i >= 0 {
			lastErr = lastErr[:i]
		}
		rows = append(rows, []string{
			titleCase(task.Name),
			task.Thread,
			yesNo(task.Running),
			formatCount(int64(task.Restarts)),
			lastErr,
		})
	}
	return rows
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses))
	for _, dep := range statuses {
		if dep.Available {
			lines = append(lines, renderStatusLine(dep.Name, statusOK, dep.Command, colorize))
			continue
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, dep.Detail, colorize))
	}
	return lines
}
