// Package scope unifies the raw asset type strings used by bug bounty
// platforms into a small set of categories.
package scope

import "strings"

// unificationMap is the source of truth for category normalization.
// It groups raw, platform-specific asset types under a unified category name.
var unificationMap = map[string][]string{
	"wildcard":   {"wildcard"},
	"url":        {"url", "website", "web", "web-application", "web_application", "webapp", "api", "endpoint"},
	"cidr":       {"cidr", "iprange", "ip-range", "ip_range", "ip_address", "ip-address"},
	"android":    {"android", "google_play_app_id", "other_apk", "mobile-application-android", "mobile-application"},
	"ios":        {"ios", "apple_store_app_id", "other_ipa", "testflight", "mobile-application-ios", "apple-store"},
	"ai":         {"ai_model"},
	"hardware":   {"hardware", "device", "iot"},
	"blockchain": {"smart_contract"},
	"binary":     {"windows_app_store_app_id", "downloadable_executables", "executable"},
	"code":       {"source_code", "source-code", "sourcecode"},
	"protocol":   {"protocol"},
	"infra":      {"aws_cloud_config", "application", "network"},
	"other":      {"other"},
}

// categoryMap is a reverse map generated from unificationMap for efficient lookups.
var categoryMap map[string]string

func init() {
	categoryMap = make(map[string]string)
	for unified, raws := range unificationMap {
		for _, raw := range raws {
			categoryMap[raw] = unified
		}
	}
}

// NormalizeCategory maps a raw asset type to its unified category.
// Unknown types are lowercased with spaces turned into underscores so they can
// still be matched against a configured category.
func NormalizeCategory(category string) string {
	catLower := strings.ToLower(strings.TrimSpace(category))

	if unified, ok := categoryMap[catLower]; ok {
		return unified
	}

	return strings.ReplaceAll(catLower, " ", "_")
}
