package diff

import "reflect"

// DiffTargets compares the scope lists of a program. Each list is compared
// independently of target order. Only targets whose asset type is allowed and
// whose descriptive value is new contribute an entry.
func DiffTargets(oldSet, newSet TargetSet, rules Rules) (inScope, outOfScope []ValueChange) {
	return diffTargetList(oldSet.InScope, newSet.InScope, rules),
		diffTargetList(oldSet.OutOfScope, newSet.OutOfScope, rules)
}

func diffTargetList(oldList, newList []Target, rules Rules) []ValueChange {
	used := make([]bool, len(oldList))

	var pending []Target
	for _, n := range newList {
		if !consumeEqual(oldList, used, n) {
			pending = append(pending, n)
		}
	}

	var changes []ValueChange
	for _, n := range pending {
		assetType := rules.AssetType(n)
		if !rules.AllowsAssetType(assetType) {
			continue
		}
		changed := attributeDiff(counterpart(oldList, used, n, rules), n)
		if len(changed) == 0 {
			continue
		}
		if key, v, ok := firstPresent(changed, rules.valueKeys); ok {
			changes = append(changes, ValueChange{Key: key, Value: FormatValue(v), AssetType: assetType})
		}
	}
	return changes
}

// consumeEqual marks the first unused old target identical to t.
func consumeEqual(oldList []Target, used []bool, t Target) bool {
	for j, o := range oldList {
		if !used[j] && reflect.DeepEqual(o, t) {
			used[j] = true
			return true
		}
	}
	return false
}

// counterpart claims the first unused old target with the same descriptive
// value as t. It returns nil for targets that are new.
func counterpart(oldList []Target, used []bool, t Target, rules Rules) Target {
	key, v, ok := rules.ValueOf(t)
	if !ok {
		return nil
	}
	for j, o := range oldList {
		if !used[j] && reflect.DeepEqual(o[key], v) {
			used[j] = true
			return o
		}
	}
	return nil
}

// attributeDiff returns the key/value pairs of newT that oldT lacks.
func attributeDiff(oldT, newT Target) map[string]any {
	out := make(map[string]any)
	for k, v := range newT {
		if ov, ok := oldT[k]; !ok || !reflect.DeepEqual(ov, v) {
			out[k] = v
		}
	}
	return out
}
