// Package output renders reconciliation reports and artifact listings for
// the operator's terminal.
package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/voxlane/asrctl/internal/artifacts"
	"github.com/voxlane/asrctl/internal/firewall"
)

// ANSI color codes for status markers (used when Colored=true).
const (
	ansiReset = "\033[0m"
	ansiGreen = "\033[0;32m"
	ansiRed   = "\033[0;31m"
)

// statusMark renders an OK / FAILED marker, coloured when requested.
// Uncoloured is the default so CI logs stay clean.
func statusMark(ok, colored bool) string {
	if ok {
		if colored {
			return ansiGreen + "OK" + ansiReset
		}
		return "OK"
	}
	if colored {
		return ansiRed + "FAILED" + ansiReset
	}
	return "FAILED"
}

// RenderReport writes the post-reconciliation summary: one status line per
// applied or removed entry, then the live rules-per-source table. The
// table is rendered even when mutations failed so the operator can see
// exactly what state the target ended in.
func RenderReport(w io.Writer, report *firewall.Report, colored bool) {
	fmt.Fprintf(w, "Target: %s\n", report.Target)

	for _, res := range report.Removed {
		ok := len(res.FailedPorts) == 0
		fmt.Fprintf(w, "  remove %-18s %s", res.CIDR, statusMark(ok, colored))
		if len(res.MissingPorts) > 0 {
			fmt.Fprintf(w, "  (%d rule(s) already absent)", len(res.MissingPorts))
		}
		fmt.Fprintln(w)
	}

	for _, res := range report.Added {
		fmt.Fprintf(w, "  add    %-18s %s", res.CIDR, statusMark(res.OK(), colored))
		if len(res.ExistingPorts) > 0 {
			fmt.Fprintf(w, "  (%d rule(s) already existed)", len(res.ExistingPorts))
		}
		if len(res.FailedPorts) > 0 {
			fmt.Fprintf(w, "  failed ports: %s", joinPorts(res.FailedPorts))
		}
		fmt.Fprintln(w)
	}

	if pub := report.PublicResult; pub != nil {
		fmt.Fprintf(w, "  public %-18s %s\n", firewall.AnyWire, statusMark(pub.OK(), colored))
	}

	if report.PortsByCIDR == nil {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-20s  %s\n", "SOURCE", "ACCESSIBLE PORTS")
	fmt.Fprintln(w, strings.Repeat("-", 44))

	sources := make([]string, 0, len(report.PortsByCIDR))
	for cidr := range report.PortsByCIDR {
		sources = append(sources, cidr)
	}
	sort.Strings(sources)

	for _, cidr := range sources {
		fmt.Fprintf(w, "%-20s  %s\n", cidr, joinPorts(report.PortsByCIDR[cidr]))
	}
}

// RenderState writes the rules-per-source table for a read-only listing.
func RenderState(w io.Writer, target string, state map[string]map[int]bool) {
	fmt.Fprintf(w, "Target: %s\n", target)
	if len(state) == 0 {
		fmt.Fprintln(w, "No ingress rules.")
		return
	}

	sources := make([]string, 0, len(state))
	for cidr := range state {
		sources = append(sources, cidr)
	}
	sort.Strings(sources)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-20s  %s\n", "SOURCE", "ACCESSIBLE PORTS")
	fmt.Fprintln(w, strings.Repeat("-", 44))
	for _, cidr := range sources {
		ports := make([]int, 0, len(state[cidr]))
		for p := range state[cidr] {
			ports = append(ports, p)
		}
		sort.Ints(ports)
		fmt.Fprintf(w, "%-20s  %s\n", cidr, joinPorts(ports))
	}
}

// RenderArtifacts writes the artifact listing table.
func RenderArtifacts(w io.Writer, objects []artifacts.Object) {
	if len(objects) == 0 {
		fmt.Fprintln(w, "No artifacts.")
		return
	}
	fmt.Fprintf(w, "%-52s  %12s  %s\n", "KEY", "SIZE", "LAST MODIFIED")
	fmt.Fprintln(w, strings.Repeat("-", 88))
	for _, obj := range objects {
		fmt.Fprintf(w, "%-52s  %12d  %s\n", obj.Key, obj.Size, obj.LastModified.Format("2006-01-02 15:04:05"))
	}
}

func joinPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = fmt.Sprintf("%d", p)
	}
	return strings.Join(parts, ", ")
}
