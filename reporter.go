package main

import (
	"fmt"
	"strings"
)

func reportHealth(h HealthCheckReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Checks run: %d (%.2fs)\n", h.ChecksRun, h.Duration.Seconds())
	for _, f := range h.Failures {
		severity := "warning"
		if f.Critical {
			severity = "critical"
		}
		fmt.Fprintf(&b, "- %s: %s (%s)\n", f.CheckName, f.ErrorMessage, severity)
	}
	if h.Passed {
		b.WriteString("Summary: store is healthy")
	} else {
		b.WriteString("Summary: store is unhealthy")
	}
	return b.String()
}

func reportStartup(r StartupReport) string {
	var b strings.Builder
	if !r.UpdateDetected {
		b.WriteString("No update detected, ordinary startup")
		return b.String()
	}
	b.WriteString("Update detected\n")
	if r.HealthReport != nil {
		b.WriteString(reportHealth(*r.HealthReport))
		b.WriteString("\n")
	}
	switch {
	case r.Committed:
		b.WriteString("Update confirmed, version committed")
	case r.RolledBack:
		b.WriteString("Update rolled back to previous version")
	case r.ErrorMessage != "":
		b.WriteString(r.ErrorMessage)
	}
	return b.String()
}

func reportFailedVersions(versions []string) string {
	if len(versions) == 0 {
		return "No failed update versions recorded"
	}
	var b strings.Builder
	b.WriteString("Versions that will not be offered again:\n")
	for _, v := range versions {
		fmt.Fprintf(&b, "- %s\n", v)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
