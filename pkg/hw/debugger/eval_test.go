package debugger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
)

type testMemory map[uint16]uint8

func (m testMemory) GetByteRam(addr uint16) uint8 { return m[addr] }

// TestTokenize tests the expression tokenizer
func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		expected []Token
		wantErr  bool
	}{
		{
			name:     "decimal number",
			expr:     "123",
			expected: []Token{{Type: TokenNumber, Value: "123", Num: 123}},
		},
		{
			name:     "hex number",
			expr:     "0X1A2B",
			expected: []Token{{Type: TokenNumber, Value: "0X1A2B", Num: 0x1a2b}},
		},
		{
			name:     "assembler hex number",
			expr:     "$C000",
			expected: []Token{{Type: TokenNumber, Value: "$C000", Num: 0xC000}},
		},
		{
			name:     "binary number with separators",
			expr:     "0b1111_0000",
			expected: []Token{{Type: TokenNumber, Value: "0b1111_0000", Num: 0xF0}},
		},
		{
			name:     "register pair",
			expr:     "HL",
			expected: []Token{{Type: TokenRegister, Value: "hl"}},
		},
		{
			name:     "symbol",
			expr:     "main_loop",
			expected: []Token{{Type: TokenSymbol, Value: "main_loop"}},
		},
		{
			name: "memory dereference",
			expr: "[sp + 1] << 8",
			expected: []Token{
				{Type: TokenLBracket, Value: "["},
				{Type: TokenRegister, Value: "sp"},
				{Type: TokenPlus, Value: "+"},
				{Type: TokenNumber, Value: "1", Num: 1},
				{Type: TokenRBracket, Value: "]"},
				{Type: TokenShiftLeft, Value: "<<"},
				{Type: TokenNumber, Value: "8", Num: 8},
			},
		},
		{
			name:    "invalid character",
			expr:    "a # b",
			wantErr: true,
		},
		{
			name:    "empty hex",
			expr:    "0x",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, tokens)
		})
	}
}

func TestIsRegisterName(t *testing.T) {
	for _, name := range []string{"a", "f", "b", "c", "d", "e", "h", "l", "psw", "bc", "de", "hl", "sp", "pc", "cc"} {
		assert.True(t, IsRegisterName(name), name)
	}
	for _, name := range []string{"r0", "ix", "af", "lr", ""} {
		assert.False(t, IsRegisterName(name), name)
	}
}

func TestFormatBinary(t *testing.T) {
	assert.Equal(t, "00000000_00000000", FormatBinary(0))
	assert.Equal(t, "10100101_00001111", FormatBinary(0xA50F))
}

func TestEvalArithmetic(t *testing.T) {
	eval := NewExpressionEvaluator(nil, Symbols{"start": 0x0100})

	tests := []struct {
		expr     string
		expected uint64
		wantErr  bool
	}{
		{expr: "1 + 2", expected: 3},
		{expr: "2 + 3 * 4", expected: 14},
		{expr: "(2 + 3) * 4", expected: 20},
		{expr: "0x100 | 0x01 & 0xFF", expected: 0x101},
		{expr: "1 << 4 + 1", expected: 32},
		{expr: "17 % 5", expected: 2},
		{expr: "-1 & 0xFFFF", expected: 0xFFFF},
		{expr: "start + 3", expected: 0x0103},
		{expr: "0xF0 ^ 0xFF", expected: 0x0F},
		{expr: "1 / 0", wantErr: true},
		{expr: "1 % 0", wantErr: true},
		{expr: "(1 + 2", wantErr: true},
		{expr: "1 2", wantErr: true},
		{expr: "", wantErr: true},
		{expr: "unknown", wantErr: true},
		{expr: "pc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			result, err := eval.Eval(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvalRegisters(t *testing.T) {
	state := i8080.State{A: 0x12, F: 0x02, B: 0x34, C: 0x56, H: 0x80, L: 0x01, SP: 0xC000, PC: 0x0123, CC: 1 << 36}
	eval := NewExpressionEvaluator(StateContext{State: state}, nil)

	tests := []struct {
		expr     string
		expected uint64
	}{
		{"a", 0x12},
		{"A", 0x12},
		{"bc", 0x3456},
		{"psw", 0x1202},
		{"hl + 1", 0x8002},
		{"sp - 2", 0xBFFE},
		{"pc", 0x0123},
		{"cc >> 36", 1},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			result, err := eval.Eval(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvalMemory(t *testing.T) {
	memory := testMemory{0xC000: 0x34, 0xC001: 0x12}
	eval := NewExpressionEvaluator(StateContext{State: i8080.State{SP: 0xC000}, Memory: memory}, nil)

	result, err := eval.Eval("[sp+1] << 8 | [sp]")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), result)

	_, err = eval.Eval("[0x10000]")
	assert.Error(t, err)

	_, err = eval.Eval("[sp")
	assert.Error(t, err)

	addr, err := eval.Eval16("sp + 1")
	require.NoError(t, err)
	assert.Equal(t, uint16(0xC001), addr)

	_, err = eval.Eval16("sp << 4")
	assert.Error(t, err)
}
