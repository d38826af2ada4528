// Package ir defines the register-based intermediate representation the
// compiler lowers typed programs into, and the text emitter consumed by
// the execution environment.
//
// The IR is a tree of instructions targeting a virtual machine with a
// fixed pool of numbered registers. Suspending instructions yield to the
// host environment; everything else runs to completion. Instruction nodes
// are immutable once appended to a block.
package ir

import (
	"fmt"
	"strings"

	"github.com/ttlang/go-tt/internal/ast"
)

// Register is a numbered virtual register.
type Register int

// String returns the register's spelling in the emitted text.
func (r Register) String() string {
	return fmt.Sprintf("r%d", int(r))
}

// Instruction is a single IR node. Emit produces the instruction's text,
// one line (or block) per instruction, indented by prefix.
type Instruction interface {
	instructionNode()

	// Suspending reports whether executing the instruction may yield to
	// the host environment.
	Suspending() bool

	// Emit renders the instruction as target text.
	Emit(prefix string) string
}

// Block is an ordered sequence of instructions.
type Block struct {
	Instructions []Instruction
}

// Add appends an instruction to the block.
func (b *Block) Add(instr Instruction) {
	b.Instructions = append(b.Instructions, instr)
}

// Emit renders the block body, one instruction per line.
func (b *Block) Emit(prefix string) string {
	var sb strings.Builder
	for _, instr := range b.Instructions {
		sb.WriteString(instr.Emit(prefix))
		sb.WriteString("\n")
	}
	return sb.String()
}

// RootBlock is the top of an IR program: the register declarations
// followed by the top-level block.
type RootBlock struct {
	RegisterCount int
	Body          *Block
}

// Emit renders the complete program.
func (r *RootBlock) Emit() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "registers %d\n", r.RegisterCount)
	sb.WriteString(r.Body.Emit(""))
	return sb.String()
}

// ============================================================================
// Control flow
// ============================================================================

// TryCatch executes Body and reports any error raised by a suspending
// instruction through the environment's error hook.
type TryCatch struct {
	Message string
	Body    *Block
}

func (*TryCatch) instructionNode() {}
func (*TryCatch) Suspending() bool { return false }
func (t *TryCatch) Emit(prefix string) string {
	var sb strings.Builder
	sb.WriteString(prefix + "try {\n")
	sb.WriteString(t.Body.Emit(prefix + "  "))
	fmt.Fprintf(&sb, "%s} catch (%q)", prefix, t.Message)
	return sb.String()
}

// If branches on a condition register. Else may be empty but is always
// present.
type If struct {
	Cond Register
	Then *Block
	Else *Block
}

func (*If) instructionNode() {}
func (*If) Suspending() bool { return false }
func (i *If) Emit(prefix string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%sif %s {\n", prefix, i.Cond)
	sb.WriteString(i.Then.Emit(prefix + "  "))
	if len(i.Else.Instructions) > 0 {
		sb.WriteString(prefix + "} else {\n")
		sb.WriteString(i.Else.Emit(prefix + "  "))
	}
	sb.WriteString(prefix + "}")
	return sb.String()
}

// ForOf iterates the rows of an iterable register, binding each row to
// Row.
type ForOf struct {
	Row      Register
	Iterable Register
	Body     *Block
}

func (*ForOf) instructionNode() {}
func (*ForOf) Suspending() bool { return false }
func (f *ForOf) Emit(prefix string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%sfor %s of %s {\n", prefix, f.Row, f.Iterable)
	sb.WriteString(f.Body.Emit(prefix + "  "))
	sb.WriteString(prefix + "}")
	return sb.String()
}

// AsyncWhile steps an asynchronous iterator, binding each result to
// Result; the step suspends.
type AsyncWhile struct {
	Result   Register
	Iterator Register
	Body     *Block
}

func (*AsyncWhile) instructionNode() {}
func (*AsyncWhile) Suspending() bool { return true }
func (a *AsyncWhile) Emit(prefix string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%swhile %s = await step %s {\n", prefix, a.Result, a.Iterator)
	sb.WriteString(a.Body.Emit(prefix + "  "))
	sb.WriteString(prefix + "}")
	return sb.String()
}

// LabeledLoop is an infinite loop that labeled break and continue target.
type LabeledLoop struct {
	Label int
	Body  *Block
}

func (*LabeledLoop) instructionNode() {}
func (*LabeledLoop) Suspending() bool { return false }
func (l *LabeledLoop) Emit(prefix string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%sloop L%d {\n", prefix, l.Label)
	sb.WriteString(l.Body.Emit(prefix + "  "))
	sb.WriteString(prefix + "}")
	return sb.String()
}

// LabeledBreak exits the loop with the given label.
type LabeledBreak struct {
	Label int
}

func (*LabeledBreak) instructionNode() {}
func (*LabeledBreak) Suspending() bool { return false }
func (b *LabeledBreak) Emit(prefix string) string {
	return fmt.Sprintf("%sbreak L%d", prefix, b.Label)
}

// LabeledContinue restarts the loop with the given label.
type LabeledContinue struct {
	Label int
}

func (*LabeledContinue) instructionNode() {}
func (*LabeledContinue) Suspending() bool { return false }
func (c *LabeledContinue) Emit(prefix string) string {
	return fmt.Sprintf("%scontinue L%d", prefix, c.Label)
}

// Break exits the innermost loop.
type Break struct{}

func (*Break) instructionNode() {}
func (*Break) Suspending() bool { return false }
func (*Break) Emit(prefix string) string {
	return prefix + "break"
}

// ============================================================================
// Non-suspending instructions
// ============================================================================

// LoadConstant loads a constant value into a register.
type LoadConstant struct {
	Dst   Register
	Value ast.Value
}

func (*LoadConstant) instructionNode() {}
func (*LoadConstant) Suspending() bool { return false }
func (l *LoadConstant) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = const %s", prefix, l.Dst, l.Value.String())
}

// CreateTuple allocates an empty parameter tuple.
type CreateTuple struct {
	Dst  Register
	Size int
}

func (*CreateTuple) instructionNode() {}
func (*CreateTuple) Suspending() bool { return false }
func (c *CreateTuple) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = tuple %d", prefix, c.Dst, c.Size)
}

// SetIndex stores a register into a named field of a tuple.
type SetIndex struct {
	Tuple Register
	Field string
	Value Register
}

func (*SetIndex) instructionNode() {}
func (*SetIndex) Suspending() bool { return false }
func (s *SetIndex) Emit(prefix string) string {
	return fmt.Sprintf("%sset %s.%s = %s", prefix, s.Tuple, s.Field, s.Value)
}

// GetIndex reads a named field of a tuple into a register.
type GetIndex struct {
	Dst   Register
	Tuple Register
	Field string
}

func (*GetIndex) instructionNode() {}
func (*GetIndex) Suspending() bool { return false }
func (g *GetIndex) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = get %s.%s", prefix, g.Dst, g.Tuple, g.Field)
}

// GetVariable reads a named scope variable into a register.
type GetVariable struct {
	Dst  Register
	Name string
}

func (*GetVariable) instructionNode() {}
func (*GetVariable) Suspending() bool { return false }
func (g *GetVariable) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = var %s", prefix, g.Dst, g.Name)
}

// GetEnvironment reads a value provided by the execution environment
// ($event, $now, $program_id, ...).
type GetEnvironment struct {
	Dst  Register
	Name string
}

func (*GetEnvironment) instructionNode() {}
func (*GetEnvironment) Suspending() bool { return false }
func (g *GetEnvironment) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = env %s", prefix, g.Dst, g.Name)
}

// BinaryOp applies an infix operator to two registers.
type BinaryOp struct {
	Dst Register
	Lhs Register
	Op  string
	Rhs Register
}

func (*BinaryOp) instructionNode() {}
func (*BinaryOp) Suspending() bool { return false }
func (b *BinaryOp) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = %s %s %s", prefix, b.Dst, b.Lhs, b.Op, b.Rhs)
}

// UnaryOp applies a prefix operator to a register.
type UnaryOp struct {
	Dst Register
	Op  string
	Src Register
}

func (*UnaryOp) instructionNode() {}
func (*UnaryOp) Suspending() bool { return false }
func (u *UnaryOp) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = %s %s", prefix, u.Dst, u.Op, u.Src)
}

// BinaryFunctionOp applies a named binary function to two registers.
type BinaryFunctionOp struct {
	Dst Register
	Fn  string
	Lhs Register
	Rhs Register
}

func (*BinaryFunctionOp) instructionNode() {}
func (*BinaryFunctionOp) Suspending() bool { return false }
func (b *BinaryFunctionOp) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = %s(%s, %s)", prefix, b.Dst, b.Fn, b.Lhs, b.Rhs)
}

// CreateAggregation describes a table operation (projection, sort, index,
// slice or aggregation) over an opaque saved table.
type CreateAggregation struct {
	Dst      Register
	Operator string
	Field    string
	Table    string
}

func (*CreateAggregation) instructionNode() {}
func (*CreateAggregation) Suspending() bool { return false }
func (c *CreateAggregation) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = aggregation %s %s over %q", prefix, c.Dst, c.Operator, c.Field, c.Table)
}

// ClearGetCache invalidates the environment's cached query results.
type ClearGetCache struct{}

func (*ClearGetCache) instructionNode() {}
func (*ClearGetCache) Suspending() bool { return false }
func (*ClearGetCache) Emit(prefix string) string {
	return prefix + "clear_get_cache"
}

// ============================================================================
// Suspending instructions
// ============================================================================

// InvokeTrigger obtains the asynchronous iterator of a stream function.
type InvokeTrigger struct {
	Dst      Register
	Selector string
	Channel  string
	Params   Register
}

func (*InvokeTrigger) instructionNode() {}
func (*InvokeTrigger) Suspending() bool { return true }
func (i *InvokeTrigger) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = await invoke_trigger @%s.%s %s", prefix, i.Dst, i.Selector, i.Channel, i.Params)
}

// InvokeQuery runs a query function and yields its rows.
type InvokeQuery struct {
	Dst      Register
	Selector string
	Channel  string
	Params   Register
}

func (*InvokeQuery) instructionNode() {}
func (*InvokeQuery) Suspending() bool { return true }
func (i *InvokeQuery) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = await invoke_query @%s.%s %s", prefix, i.Dst, i.Selector, i.Channel, i.Params)
}

// InvokeAction runs an action function for its side effect.
type InvokeAction struct {
	Dst      Register
	Selector string
	Channel  string
	Params   Register
}

func (*InvokeAction) instructionNode() {}
func (*InvokeAction) Suspending() bool { return true }
func (i *InvokeAction) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = await invoke_action @%s.%s %s", prefix, i.Dst, i.Selector, i.Channel, i.Params)
}

// InvokeOutput delivers a result row to the user.
type InvokeOutput struct {
	Kind   string
	Params Register
}

func (*InvokeOutput) instructionNode() {}
func (*InvokeOutput) Suspending() bool { return true }
func (i *InvokeOutput) Emit(prefix string) string {
	return fmt.Sprintf("%sawait invoke_output %s %s", prefix, i.Kind, i.Params)
}

// InvokeMemoryQuery reads rows back from a saved table.
type InvokeMemoryQuery struct {
	Dst     Register
	Table   string
	Version Register
}

func (*InvokeMemoryQuery) instructionNode() {}
func (*InvokeMemoryQuery) Suspending() bool { return true }
func (i *InvokeMemoryQuery) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = await invoke_memory_query %q %s", prefix, i.Dst, i.Table, i.Version)
}

// InvokeSave persists rows into a named table.
type InvokeSave struct {
	Table string
	Value Register
}

func (*InvokeSave) instructionNode() {}
func (*InvokeSave) Suspending() bool { return true }
func (i *InvokeSave) Emit(prefix string) string {
	return fmt.Sprintf("%sawait invoke_save %q %s", prefix, i.Table, i.Value)
}

// GetTableVersion reads the current version of a saved table.
type GetTableVersion struct {
	Dst   Register
	Table string
}

func (*GetTableVersion) instructionNode() {}
func (*GetTableVersion) Suspending() bool { return true }
func (g *GetTableVersion) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = await table_version %q", prefix, g.Dst, g.Table)
}

// FormatEvent renders the current event for output.
type FormatEvent struct {
	Dst Register
}

func (*FormatEvent) instructionNode() {}
func (*FormatEvent) Suspending() bool { return true }
func (f *FormatEvent) Emit(prefix string) string {
	return fmt.Sprintf("%s%s = await format_event", prefix, f.Dst)
}

// SendEndOfFlow signals a remote principal that a flow is complete.
type SendEndOfFlow struct {
	Principal Register
	Flow      string
}

func (*SendEndOfFlow) instructionNode() {}
func (*SendEndOfFlow) Suspending() bool { return true }
func (s *SendEndOfFlow) Emit(prefix string) string {
	return fmt.Sprintf("%sawait send_end_of_flow %s %q", prefix, s.Principal, s.Flow)
}
