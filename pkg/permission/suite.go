package permission

import "sort"

// Permission is a catalog entry as seen by the resolver.
type Permission struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`
	SuiteKey string `json:"suite_key"`
	Category string `json:"category"`
}

// suiteLabels maps stored suite keys onto the suites shown to operators.
// Hiring and project permissions share one suite.
var suiteLabels = map[string]string{
	"general":      "General (Core)",
	"hiring":       "Recruit & Project",
	"project":      "Recruit & Project",
	"verification": "Verification",
	"sales":        "Sales",
	"finance":      "Finance",
}

var suiteOrder = []string{
	"General (Core)",
	"Recruit & Project",
	"Verification",
	"Sales",
	"Finance",
}

// SuiteLabel returns the display suite for a stored suite key. Unknown keys
// are their own suite.
func SuiteLabel(suiteKey string) string {
	if label, ok := suiteLabels[suiteKey]; ok {
		return label
	}
	return suiteKey
}

// Entry is one permission inside a display suite.
type Entry struct {
	Permission
	Selected bool  `json:"selected"`
	Badge    Badge `json:"badge"`
}

// SuiteGroup is a display suite and its entries, ordered by category then
// name.
type SuiteGroup struct {
	Label   string  `json:"label"`
	Entries []Entry `json:"entries"`
}

// GroupBySuite groups permissions by display suite. Known suites come first
// in a fixed order; unknown suites follow alphabetically. The entry
// decorator may be nil.
func GroupBySuite(catalog []Permission, decorate func(*Entry)) []SuiteGroup {
	byLabel := make(map[string][]Entry)
	for _, p := range catalog {
		e := Entry{Permission: p}
		if decorate != nil {
			decorate(&e)
		}
		label := SuiteLabel(p.SuiteKey)
		byLabel[label] = append(byLabel[label], e)
	}

	labels := make([]string, 0, len(byLabel))
	for _, label := range suiteOrder {
		if _, ok := byLabel[label]; ok {
			labels = append(labels, label)
		}
	}
	var unknown []string
	for label := range byLabel {
		if suiteRank(label) < 0 {
			unknown = append(unknown, label)
		}
	}
	sort.Strings(unknown)
	labels = append(labels, unknown...)

	groups := make([]SuiteGroup, 0, len(labels))
	for _, label := range labels {
		entries := byLabel[label]
		sort.SliceStable(entries, func(i, j int) bool {
			if entries[i].Category != entries[j].Category {
				return entries[i].Category < entries[j].Category
			}
			if entries[i].Name != entries[j].Name {
				return entries[i].Name < entries[j].Name
			}
			return entries[i].Key < entries[j].Key
		})
		groups = append(groups, SuiteGroup{Label: label, Entries: entries})
	}
	return groups
}

func suiteRank(label string) int {
	for i, l := range suiteOrder {
		if l == label {
			return i
		}
	}
	return -1
}

func catalogIDs(catalog []Permission) IDSet {
	ids := make(IDSet, len(catalog))
	for _, p := range catalog {
		ids.Add(p.ID)
	}
	return ids
}
