package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble renders a code block and its nested functions as readable
// text: offsets, mnemonics, operands, and pool annotations.
func Disassemble(cb *CodeBlock) string {
	var sb strings.Builder
	disassembleInto(&sb, cb, "")
	return sb.String()
}

func disassembleInto(sb *strings.Builder, cb *CodeBlock, prefix string) {
	name := cb.Name
	if name == "" {
		if cb.Flags&FlagModule != 0 {
			name = "<module>"
		} else if cb.Flags&FlagGlobalCode != 0 {
			name = "<global>"
		} else {
			name = "<anonymous>"
		}
	}
	fmt.Fprintf(sb, "%s== %s (registers: %d, params: %d", prefix, name, cb.RegCount, cb.NumParams)
	if cb.IsStrict() {
		sb.WriteString(", strict")
	}
	if cb.IsGenerator() {
		sb.WriteString(", generator")
	}
	if cb.IsAsync() {
		sb.WriteString(", async")
	}
	if cb.IsArrow() {
		sb.WriteString(", arrow")
	}
	sb.WriteString(")\n")

	pc := 0
	for pc < len(cb.Code) {
		start := pc
		op := OpCode(cb.Code[pc])
		pc++
		width := 1
		switch op {
		case OpWide:
			width = 2
			op = OpCode(cb.Code[pc])
			pc++
		case OpExtraWide:
			width = 4
			op = OpCode(cb.Code[pc])
			pc++
		}
		operands := make([]int, op.OperandCount())
		for i := range operands {
			switch width {
			case 1:
				operands[i] = int(cb.Code[pc])
			case 2:
				operands[i] = int(binary.LittleEndian.Uint16(cb.Code[pc:]))
			default:
				operands[i] = int(int32(binary.LittleEndian.Uint32(cb.Code[pc:])))
			}
			pc += width
		}

		fmt.Fprintf(sb, "%s%5d  %-22s", prefix, start, op.String())
		for i, v := range operands {
			if i > 0 {
				sb.WriteString(", ")
			} else {
				sb.WriteString(" ")
			}
			fmt.Fprintf(sb, "%d", v)
		}
		sb.WriteString(annotate(cb, op, operands, pc))
		sb.WriteString("\n")
	}

	if len(cb.Handlers) > 0 {
		fmt.Fprintf(sb, "%sHandlers:\n", prefix)
		for _, h := range cb.Handlers {
			fmt.Fprintf(sb, "%s  [%d, %d) -> %d (reg %d, depth %d)\n",
				prefix, h.Start, h.End, h.Handler, h.Reg, h.EnvDepth)
		}
	}

	for _, inner := range cb.Functions {
		sb.WriteString("\n")
		disassembleInto(sb, inner, prefix+"  ")
	}
}

// annotate renders pool lookups and jump targets beside the operands.
func annotate(cb *CodeBlock, op OpCode, operands []int, pcAfter int) string {
	switch op {
	case OpLoadConst:
		if operands[1] < len(cb.Constants) {
			return "  ; " + cb.Constants[operands[1]].Inspect()
		}
	case OpGetName, OpTypeofName, OpDeleteName:
		if operands[1] < len(cb.Names) {
			return "  ; " + cb.Names[operands[1]]
		}
	case OpSetName, OpInitName:
		if operands[0] < len(cb.Names) {
			return "  ; " + cb.Names[operands[0]]
		}
	case OpGetProp:
		if operands[2] < len(cb.Names) {
			return "  ; ." + cb.Names[operands[2]]
		}
	case OpSetProp:
		if operands[1] < len(cb.Names) {
			return "  ; ." + cb.Names[operands[1]]
		}
	case OpNewClosure, OpNewClass, OpNewClassDerived:
		if operands[1] < len(cb.Functions) {
			inner := cb.Functions[operands[1]]
			name := inner.Name
			if name == "" {
				name = "<anonymous>"
			}
			return "  ; " + name
		}
	}
	if op.IsJump() {
		return fmt.Sprintf("  ; -> %d", pcAfter+operands[len(operands)-1])
	}
	return ""
}
