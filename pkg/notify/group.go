package notify

import (
	"net"
	"net/url"
	"sort"
	"strings"

	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// Group is a set of list entries sharing a registrable root domain.
type Group struct {
	Root    string
	Entries []string
}

// GroupByRootDomain buckets entries by root domain. Entries without one
// (IPs, malformed lines) end up in a group with an empty Root, listed last.
func GroupByRootDomain(entries []string) []Group {
	byRoot := make(map[string][]string)
	for _, e := range entries {
		root, _ := ExtractRootDomain(e)
		byRoot[root] = append(byRoot[root], e)
	}

	groups := make([]Group, 0, len(byRoot))
	for root, es := range byRoot {
		sort.Strings(es)
		groups = append(groups, Group{Root: root, Entries: es})
	}
	sort.Slice(groups, func(i, j int) bool {
		if (groups[i].Root == "") != (groups[j].Root == "") {
			return groups[j].Root == ""
		}
		return groups[i].Root < groups[j].Root
	})
	return groups
}

// ExtractRootDomain takes a list entry and tries to find the root domain.
// e.g., "*.sub.foo.example.co.uk" -> "example.co.uk", true
func ExtractRootDomain(entry string) (string, bool) {
	entry = strings.TrimSpace(entry)
	entry = strings.TrimPrefix(entry, "*.")

	host := entry
	if !strings.Contains(entry, "://") && strings.Contains(entry, ".") {
		entry = "http://" + entry
	}
	if u, err := url.Parse(entry); err == nil && u.Host != "" {
		host = u.Hostname()
	} else {
		host = strings.Split(host, "/")[0]
		host = strings.Split(host, ":")[0]
	}

	if net.ParseIP(strings.Trim(host, "[]")) != nil {
		return "", false
	}
	// Wildcards in the middle of a name have no single root.
	if !strings.Contains(host, ".") || strings.Contains(host, "*") {
		return "", false
	}

	domain, err := publicsuffix.Domain(strings.ToLower(host))
	if err != nil {
		return "", false
	}
	return domain, true
}
