package ir

import "strings"

// MemberKind distinguishes method references from field references.
type MemberKind string

const (
	MemberMethod MemberKind = "method"
	MemberField  MemberKind = "field"
)

// ValidMemberKinds defines allowed member kinds.
var ValidMemberKinds = map[MemberKind]bool{
	MemberMethod: true,
	MemberField:  true,
}

// MemberRef is a resolved reference to a method or field on a host type.
// Format: "method:Owner::Name".
type MemberRef struct {
	Kind  MemberKind
	Owner string
	Name  string
}

func (MemberRef) operand() {}

func (m MemberRef) String() string {
	return string(m.Kind) + ":" + m.Owner + "::" + m.Name
}

// Method is shorthand for a method MemberRef.
func Method(owner, name string) MemberRef {
	return MemberRef{Kind: MemberMethod, Owner: owner, Name: name}
}

// Field is shorthand for a field MemberRef.
func Field(owner, name string) MemberRef {
	return MemberRef{Kind: MemberField, Owner: owner, Name: name}
}

// TypeRef is a resolved reference to a host type.
// Format: "type:Name".
type TypeRef string

func (TypeRef) operand() {}

func (t TypeRef) String() string {
	return "type:" + string(t)
}

// BranchTarget is the operand of a jump: the label it lands on.
// Format: "@Label".
type BranchTarget LabelID

func (BranchTarget) operand() {}

func (b BranchTarget) String() string {
	return "@" + string(b)
}

// SplitMember splits "Owner::Name" into its parts at the last separator,
// so nested owners ("Outer::Inner::Name") keep their own separators.
// Returns ok=false when the separator is missing or either side is empty.
func SplitMember(s string) (owner, name string, ok bool) {
	idx := strings.LastIndex(s, "::")
	if idx <= 0 || idx+2 >= len(s) {
		return "", "", false
	}
	return s[:idx], s[idx+2:], true
}
