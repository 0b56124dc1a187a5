package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/bloodbank/bloodbank/internal/domain/bloodgroup"
)

// writeCompat prints the whole compatibility table, or the entry for label
// when it is not empty.
func writeCompat(w io.Writer, label string, asJSON bool) error {
	entries := bloodgroup.Table()
	if label != "" {
		entry, ok := bloodgroup.Lookup(label)
		if !ok {
			return fmt.Errorf("unknown blood group %q", label)
		}
		entries = []bloodgroup.Compatibility{entry}
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if label != "" {
			return enc.Encode(entries[0])
		}
		return enc.Encode(entries)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tCAN RECEIVE FROM\tCAN DONATE TO")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Group,
			strings.Join(e.CanReceiveFrom.Strings(), ", "),
			strings.Join(e.CanDonateTo.Strings(), ", "))
	}
	return tw.Flush()
}
