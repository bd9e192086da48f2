package diff

// EventKind names the shape of an Event.
type EventKind string

const (
	KindProgramAttribute EventKind = "program_attribute"
	KindTargets          EventKind = "targets"
	KindDomainList       EventKind = "domain_list"
)

// Event is one notification-worthy change. It is implemented by
// *ProgramAttributeChange, *TargetsChange and *DomainListChange.
type Event interface {
	Kind() EventKind
	// Subject is the program or list the event is about.
	Subject() string
}

// ValueChange is one changed descriptive value of a target.
type ValueChange struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	AssetType string `json:"asset_type"`
}

// ProgramAttributeChange reports the new value of an allow-listed scalar attribute.
type ProgramAttributeChange struct {
	ProgramName string `json:"program_name"`
	Platform    string `json:"platform"`
	Attribute   string `json:"attribute"`
	NewValue    any    `json:"new_value"`
}

func (e *ProgramAttributeChange) Kind() EventKind { return KindProgramAttribute }
func (e *ProgramAttributeChange) Subject() string { return e.ProgramName }

// TargetsChange reports targets added or changed in a program's scope.
type TargetsChange struct {
	ProgramName string        `json:"program_name"`
	Platform    string        `json:"platform"`
	InScope     []ValueChange `json:"added_or_changed_in_scope"`
	OutOfScope  []ValueChange `json:"added_or_changed_out_of_scope"`
}

func (e *TargetsChange) Kind() EventKind { return KindTargets }
func (e *TargetsChange) Subject() string { return e.ProgramName }

// DomainListChange reports entries that appeared in a flat list.
type DomainListChange struct {
	ListName string  `json:"list_name"`
	Entries  LineSet `json:"changed_entries"`
}

func (e *DomainListChange) Kind() EventKind { return KindDomainList }
func (e *DomainListChange) Subject() string { return e.ListName }

// NewTargetsChange returns nil when neither scope list has changes.
func NewTargetsChange(program, platform string, inScope, outOfScope []ValueChange) *TargetsChange {
	if len(inScope) == 0 && len(outOfScope) == 0 {
		return nil
	}
	return &TargetsChange{ProgramName: program, Platform: platform, InScope: inScope, OutOfScope: outOfScope}
}

// NewDomainListChange returns nil when no entries changed.
func NewDomainListChange(list string, entries LineSet) *DomainListChange {
	if len(entries) == 0 {
		return nil
	}
	return &DomainListChange{ListName: list, Entries: entries}
}

// Values returns the changed values of vs in order.
func Values(vs []ValueChange) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Value)
	}
	return out
}
