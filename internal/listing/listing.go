// Package listing reads and writes instruction sequences in a line-oriented
// text form, one instruction per line:
//
//	# comment
//	ldarg.0
//	L1, L2: callvirt method:ItemStack::get_count
//	brfalse @L3
//	ldstr "repair kit"
//
// Operand syntax:
//   - integer: 42, -1
//   - string: "quoted"
//   - member: method:Owner::Name, field:Owner::Name
//   - type: type:Name
//   - branch target: @Label
package listing

import (
	"bufio"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/ilpatch/internal/ir"
)

// ParseError reports a malformed listing line.
type ParseError struct {
	Line    int
	Text    string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Message, e.Text)
}

var labelListRe = regexp.MustCompile(`^[A-Za-z_][\w.$]*(\s*,\s*[A-Za-z_][\w.$]*)*$`)

// Parse reads a listing into a sequence.
func Parse(src string) (ir.Sequence, error) {
	var seq ir.Sequence
	err := eachLine(src, func(n int, line string) error {
		labels, rest := splitLabels(line)
		if rest == "" {
			return &ParseError{Line: n, Text: line, Message: "label without instruction"}
		}
		op, operand, err := splitInstruction(rest)
		if err != nil {
			return &ParseError{Line: n, Text: line, Message: err.Error()}
		}
		if op == ir.AnyOpcode {
			return &ParseError{Line: n, Text: line, Message: "wildcard opcode is only valid in patterns"}
		}
		seq = append(seq, ir.Instruction{Opcode: op, Operand: operand, Labels: labels})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return seq, nil
}

// ParsePattern reads pattern elements, one per line. Labels are not allowed;
// "*" matches any opcode.
func ParsePattern(src string) ([]ir.PatternElement, error) {
	var pattern []ir.PatternElement
	err := eachLine(src, func(n int, line string) error {
		if labels, _ := splitLabels(line); len(labels) > 0 {
			return &ParseError{Line: n, Text: line, Message: "labels are not allowed in patterns"}
		}
		op, operand, err := splitInstruction(line)
		if err != nil {
			return &ParseError{Line: n, Text: line, Message: err.Error()}
		}
		pattern = append(pattern, ir.PatternElement{Opcode: op, Operand: operand})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pattern, nil
}

// Format renders a sequence as a listing with a trailing newline.
func Format(seq ir.Sequence) string {
	if len(seq) == 0 {
		return ""
	}
	return seq.String() + "\n"
}

// FormatPattern renders pattern elements, one per line.
func FormatPattern(pattern []ir.PatternElement) string {
	var b strings.Builder
	for _, p := range pattern {
		b.WriteString(p.String())
		b.WriteByte('\n')
	}
	return b.String()
}

// ParseOperand parses a single operand in listing syntax.
func ParseOperand(s string) (ir.Operand, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return nil, nil
	case strings.HasPrefix(s, `"`):
		text, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("invalid string operand %s", s)
		}
		return ir.StringOperand(text), nil
	case strings.HasPrefix(s, "@"):
		if len(s) == 1 {
			return nil, fmt.Errorf("branch target has no label")
		}
		return ir.BranchTarget(s[1:]), nil
	case strings.HasPrefix(s, "type:"):
		name := strings.TrimPrefix(s, "type:")
		if name == "" {
			return nil, fmt.Errorf("type reference is empty")
		}
		return ir.TypeRef(name), nil
	}

	if kind, ref, ok := strings.Cut(s, ":"); ok && ir.ValidMemberKinds[ir.MemberKind(kind)] {
		owner, name, ok := ir.SplitMember(ref)
		if !ok {
			return nil, fmt.Errorf("member reference %q must be Owner::Name", ref)
		}
		return ir.MemberRef{Kind: ir.MemberKind(kind), Owner: owner, Name: name}, nil
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("unrecognized operand %q", s)
	}
	return ir.IntOperand(n), nil
}

func eachLine(src string, fn func(n int, line string) error) error {
	scanner := bufio.NewScanner(strings.NewReader(src))
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// splitLabels separates a "L1, L2:" prefix from the instruction text.
// A colon directly followed by text ("method:Owner::Name") is not a label separator.
func splitLabels(line string) (ir.LabelSet, string) {
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return nil, line
	}
	if idx+1 < len(line) && line[idx+1] != ' ' && line[idx+1] != '\t' {
		return nil, line
	}
	prefix := strings.TrimSpace(line[:idx])
	if !labelListRe.MatchString(prefix) {
		return nil, line
	}
	var labels ir.LabelSet
	for _, part := range strings.Split(prefix, ",") {
		labels = labels.Union(ir.LabelSet{ir.LabelID(strings.TrimSpace(part))})
	}
	return labels, strings.TrimSpace(line[idx+1:])
}

func splitInstruction(text string) (ir.Opcode, ir.Operand, error) {
	op, rest := text, ""
	if idx := strings.IndexAny(text, " \t"); idx >= 0 {
		op, rest = text[:idx], text[idx+1:]
	}
	operand, err := ParseOperand(rest)
	if err != nil {
		return "", nil, err
	}
	return ir.Opcode(op), operand, nil
}
