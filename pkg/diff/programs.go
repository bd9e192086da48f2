package diff

import (
	"fmt"
	"reflect"
)

// ProgramsResult is the outcome of comparing two snapshots of one platform.
type ProgramsResult struct {
	Events []Event
	// Added and Removed name programs present in only one snapshot. They are
	// membership changes, not events.
	Added   []string
	Removed []string
}

// MembershipChanged reports whether programs appeared or disappeared.
func (r ProgramsResult) MembershipChanged() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// DiffPrograms compares two snapshots of a platform. Records are paired by
// identity (see Rules.Identity); a repeated identity pairs up by occurrence.
// Any record with an unexpected shape fails the whole comparison.
func DiffPrograms(platform string, oldRecs, newRecs []Record, rules Rules) (ProgramsResult, error) {
	var res ProgramsResult

	oldIDs, err := identities(oldRecs, rules)
	if err != nil {
		return res, err
	}
	newIDs, err := identities(newRecs, rules)
	if err != nil {
		return res, err
	}

	oldIndex := make(map[string]int, len(oldIDs))
	for i, id := range oldIDs {
		oldIndex[id] = i
	}

	for i, id := range newIDs {
		j, ok := oldIndex[id]
		if !ok {
			res.Added = append(res.Added, newRecs[i].Name())
			continue
		}
		delete(oldIndex, id)

		events, err := diffRecord(platform, oldRecs[j], newRecs[i], rules)
		if err != nil {
			return ProgramsResult{}, &ShapeError{Index: i, Program: newRecs[i].Name(), Attribute: FieldTargets}
		}
		res.Events = append(res.Events, events...)
	}

	for i, id := range oldIDs {
		if _, left := oldIndex[id]; left {
			res.Removed = append(res.Removed, oldRecs[i].Name())
		}
	}
	return res, nil
}

// identities returns one unique identity per record, suffixing repeats with
// their occurrence number.
func identities(recs []Record, rules Rules) ([]string, error) {
	seen := make(map[string]int, len(recs))
	out := make([]string, 0, len(recs))
	for i, rec := range recs {
		if err := validate(i, rec); err != nil {
			return nil, err
		}
		id, ok := rules.Identity(rec)
		if !ok {
			return nil, &ShapeError{Index: i, Program: rec.Name(), Attribute: "identity"}
		}
		n := seen[id]
		seen[id] = n + 1
		if n > 0 {
			id = fmt.Sprintf("%s#%d", id, n)
		}
		out = append(out, id)
	}
	return out, nil
}

func diffRecord(platform string, oldRec, newRec Record, rules Rules) ([]Event, error) {
	if reflect.DeepEqual(oldRec, newRec) {
		return nil, nil
	}
	programName := newRec.Name()

	var events []Event
	for _, field := range rules.fields {
		oldVal, oldOK := oldRec[field]
		newVal, newOK := newRec[field]
		if oldOK == newOK && reflect.DeepEqual(oldVal, newVal) {
			continue
		}

		if field == FieldTargets {
			oldTargets, err := oldRec.Targets()
			if err != nil {
				return nil, err
			}
			newTargets, err := newRec.Targets()
			if err != nil {
				return nil, err
			}
			in, out := DiffTargets(oldTargets, newTargets, rules)
			if ev := NewTargetsChange(programName, platform, in, out); ev != nil {
				events = append(events, ev)
			}
			continue
		}

		events = append(events, &ProgramAttributeChange{
			ProgramName: programName,
			Platform:    platform,
			Attribute:   field,
			NewValue:    newVal,
		})
	}
	return events, nil
}
