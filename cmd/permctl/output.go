package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/doodlesbykumbi/orgperm/pkg/permission"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printCatalog writes the grouped catalog as plain text, one suite per block.
func printCatalog(w io.Writer, groups []permission.SuiteGroup) {
	for i, group := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, group.Label)
		for _, e := range group.Entries {
			fmt.Fprintf(w, "  %-24s %-28s %s\n", e.ID, e.Key, e.Name)
		}
	}
}

func printIDs(w io.Writer, ids []string) {
	if len(ids) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	fmt.Fprintln(w, strings.Join(ids, "\n"))
}
