package diff

import (
	"fmt"

	"github.com/sw33tLie/scopediff/pkg/scope"
)

const (
	FieldName    = "name"
	FieldTargets = "targets"

	FieldSubmissionState       = "submission_state"
	FieldEligibleForBounty     = "eligible_for_bounty"
	FieldEligibleForSubmission = "eligible_for_submission"
)

var (
	DefaultFields          = []string{FieldSubmissionState, FieldEligibleForBounty, FieldEligibleForSubmission, FieldTargets}
	DefaultAssetCategories = []string{"url", "cidr", "code", "protocol", "other"}
	DefaultValueKeys       = []string{"asset_identifier", "target", "endpoint", "url", "website"}
	DefaultIdentityKeys    = []string{"handle", "url", "name"}
	DefaultTypeKeys        = []string{"type", "asset_type"}
)

// RuleConfig is the user-facing form of Rules. Empty slices fall back to the defaults.
type RuleConfig struct {
	Fields          []string
	AssetCategories []string
	ValueKeys       []string
	IdentityKeys    []string
	TypeKeys        []string
}

// Rules holds the allow-lists that decide which differences are significant.
// A Rules value is immutable once built.
type Rules struct {
	fields       []string
	categories   map[string]struct{}
	valueKeys    []string
	identityKeys []string
	typeKeys     []string
}

// NewRules builds Rules from cfg. Asset categories may be given either as
// unified categories ("url") or as raw platform types ("Web").
func NewRules(cfg RuleConfig) Rules {
	r := Rules{
		fields:       copyOr(cfg.Fields, DefaultFields),
		valueKeys:    copyOr(cfg.ValueKeys, DefaultValueKeys),
		identityKeys: copyOr(cfg.IdentityKeys, DefaultIdentityKeys),
		typeKeys:     copyOr(cfg.TypeKeys, DefaultTypeKeys),
		categories:   make(map[string]struct{}),
	}
	for _, c := range copyOr(cfg.AssetCategories, DefaultAssetCategories) {
		r.categories[scope.NormalizeCategory(c)] = struct{}{}
	}
	return r
}

// DefaultRules returns the rules used when nothing is configured.
func DefaultRules() Rules { return NewRules(RuleConfig{}) }

func copyOr(v, def []string) []string {
	if len(v) == 0 {
		v = def
	}
	return append([]string(nil), v...)
}

// IsZero reports whether r was declared without NewRules.
func (r Rules) IsZero() bool { return r.categories == nil }

// Fields returns the allow-listed record attributes in evaluation order.
func (r Rules) Fields() []string { return append([]string(nil), r.fields...) }

// AssetType returns the raw asset type of t, checking the type keys in order.
func (r Rules) AssetType(t Target) string {
	_, v, ok := firstPresent(t, r.typeKeys)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// AllowsAssetType reports whether targets of the raw type may produce changes.
func (r Rules) AllowsAssetType(raw string) bool {
	if raw == "" {
		return false
	}
	_, ok := r.categories[scope.NormalizeCategory(raw)]
	return ok
}

// ValueOf returns the descriptive value of t and the key it was read from.
func (r Rules) ValueOf(t Target) (string, any, bool) {
	return firstPresent(t, r.valueKeys)
}

// Identity returns the key a record is matched on across snapshots.
func (r Rules) Identity(rec Record) (string, bool) {
	k, v, ok := firstPresent(rec, r.identityKeys)
	if !ok {
		return "", false
	}
	return k + "=" + FormatValue(v), true
}

func firstPresent(m map[string]any, keys []string) (string, any, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return k, v, true
		}
	}
	return "", nil, false
}

// FormatValue renders an attribute value for messages and identities.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
