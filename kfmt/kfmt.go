// Package kfmt formats the diagnostic numbers this core prints (byte
// counts, page counts, tick counts) with thousands separators, using
// golang.org/x/text/message the way a kernel's debug-print path would
// lean on a locale-aware formatter instead of hand-rolling digit
// grouping.
package kfmt

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

/// Bytes renders n as a grouped byte count, e.g. "1,048,576 bytes".
func Bytes(n uint64) string {
	return printer.Sprintf("%d bytes", n)
}

/// Pages renders a page count alongside its byte equivalent, e.g.
/// "12 pages (49,152 bytes)".
func Pages(pages uint64, pageSize uint64) string {
	return printer.Sprintf("%d pages (%d bytes)", pages, pages*pageSize)
}

/// Ticks renders a millisecond duration with grouping, e.g.
/// "1,234 ms".
func Ticks(ms int64) string {
	return printer.Sprintf("%d ms", ms)
}

/// TaskLine renders one line of a task listing: pid, status, and
/// accumulated runtime, grouped for readability in a long-running
/// core's diagnostic dump.
func TaskLine(pid int64, status string, runtimeMs int64) string {
	return printer.Sprintf("pid %d: %s, runtime %d ms", pid, status, runtimeMs)
}

/// Sprintf is a thin re-export for call sites that just want grouped
/// integer formatting without a dedicated helper above.
func Sprintf(format string, a ...interface{}) string {
	return printer.Sprintf(format, a...)
}
