package debugger

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/Manu343726/devector/pkg/hw/machine"
	"github.com/Manu343726/devector/pkg/hw/memory"
	"github.com/Manu343726/devector/pkg/utils"
)

// BreakpointData packs a breakpoint as DEBUG_BREAKPOINT_ADD parameters
func BreakpointData(bp Breakpoint) machine.Data {
	data0, data1, data2 := bp.Encode()
	return machine.Data{"data0": data0, "data1": data1, "data2": data2, "comment": bp.Comment}
}

func BreakpointFromData(data machine.Data) (Breakpoint, error) {
	data0, ok0 := data.Uint64("data0")
	data1, ok1 := data.Uint64("data1")
	data2, ok2 := data.Uint64("data2")
	if !ok0 || !ok1 || !ok2 || data0 > 0xFFFFFFFF {
		return Breakpoint{}, utils.MakeError(ErrInvalidValue, "breakpoint needs data0, data1 and data2")
	}
	comment, _ := data.Text("comment")
	return DecodeBreakpoint(uint32(data0), data1, data2, comment), nil
}

// WatchpointData packs a watchpoint as DEBUG_WATCHPOINT_ADD parameters
func WatchpointData(wp Watchpoint) machine.Data {
	data0, data1 := wp.Encode()
	return machine.Data{"data0": data0, "data1": data1, "comment": wp.Comment}
}

func WatchpointFromData(data machine.Data) (Watchpoint, error) {
	data0, ok0 := data.Uint64("data0")
	data1, ok1 := data.Uint64("data1")
	if !ok0 || !ok1 {
		return Watchpoint{}, utils.MakeError(ErrInvalidValue, "watchpoint needs data0 and data1")
	}
	comment, _ := data.Text("comment")
	return DecodeWatchpoint(data0, data1, comment), nil
}

// BreakpointSpec is the human editable form of a breakpoint, as found in
// breakpoint files:
//
//	breakpoints:
//	  - addr: 0x0100
//	    operand: A
//	    cond: "=="
//	    value: 0x10
//	    pages: [0, 1]
type BreakpointSpec struct {
	Addr       string `yaml:"addr"`
	Operand    string `yaml:"operand,omitempty"`
	Cond       string `yaml:"cond,omitempty"`
	Value      uint64 `yaml:"value,omitempty"`
	Pages      []int  `yaml:"pages,omitempty"`
	AutoDelete bool   `yaml:"autoDelete,omitempty"`
	Disabled   bool   `yaml:"disabled,omitempty"`
	Comment    string `yaml:"comment,omitempty"`
}

// Breakpoint converts the file entry, resolving expressions with the evaluator
func (s BreakpointSpec) Breakpoint(eval *ExpressionEvaluator) (Breakpoint, error) {
	bp := Breakpoint{MemPages: PageMaskAll, Operand: OperandPC, Comment: s.Comment, AutoDel: s.AutoDelete, Value: s.Value}

	addr, err := eval.Eval16(s.Addr)
	if err != nil {
		return bp, fmt.Errorf("breakpoint address '%s': %w", s.Addr, err)
	}
	bp.Addr = addr

	if s.Operand != "" {
		if bp.Operand, err = ParseOperand(s.Operand); err != nil {
			return bp, err
		}
	}
	if s.Cond != "" {
		if bp.Cond, err = ParseCondition(s.Cond); err != nil {
			return bp, err
		}
	}
	if len(s.Pages) > 0 {
		bp.MemPages = 0
		for _, page := range s.Pages {
			if page < 0 || page >= memory.TotalPages {
				return bp, utils.MakeError(ErrOutOfRange, "page %d", page)
			}
			bp.MemPages |= 1 << page
		}
	}
	if s.Disabled {
		bp.Status = BreakpointDisabled
	}
	return bp, bp.Validate()
}

// DebugFile is the YAML document preloading a debug session
type DebugFile struct {
	Symbols     map[string]uint64 `yaml:"symbols,omitempty"`
	Breakpoints []BreakpointSpec  `yaml:"breakpoints,omitempty"`
}

// LoadDebugFile reads symbols and breakpoints. Breakpoint addresses may use the symbols.
func LoadDebugFile(r io.Reader) (Symbols, []Breakpoint, error) {
	var file DebugFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("decoding debug file: %w", err)
	}

	symbols := Symbols(file.Symbols)
	eval := NewExpressionEvaluator(nil, symbols)

	breakpoints := make([]Breakpoint, 0, len(file.Breakpoints))
	for i, entry := range file.Breakpoints {
		bp, err := entry.Breakpoint(eval)
		if err != nil {
			return nil, nil, fmt.Errorf("breakpoint #%d: %w", i, err)
		}
		breakpoints = append(breakpoints, bp)
	}
	return symbols, breakpoints, nil
}
