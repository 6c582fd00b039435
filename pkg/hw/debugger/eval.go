package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
	"github.com/Manu343726/devector/pkg/utils"
)

// Token types for expression parsing
type TokenType int

const (
	TokenNumber TokenType = iota
	TokenRegister
	TokenSymbol
	TokenPlus
	TokenMinus
	TokenMul
	TokenDiv
	TokenMod
	TokenAnd
	TokenOr
	TokenXor
	TokenShiftLeft
	TokenShiftRight
	TokenLBracket
	TokenRBracket
	TokenLParen
	TokenRParen
)

// Token represents a lexical token in an expression
type Token struct {
	Type  TokenType
	Value string
	Num   uint64 // For number tokens
}

// EvalContext gives expressions access to the machine
type EvalContext interface {
	Register(name string) (uint64, error)
	ReadMem(addr uint16) (uint8, error)
}

// Symbols maps labels to addresses
type Symbols map[string]uint64

// ExpressionEvaluator evaluates debugger expressions such as "hl + 2" or "[sp+1]"
type ExpressionEvaluator struct {
	context EvalContext
	symbols Symbols
}

func NewExpressionEvaluator(context EvalContext, symbols Symbols) *ExpressionEvaluator {
	return &ExpressionEvaluator{context: context, symbols: symbols}
}

// Eval evaluates an expression string and returns the result
func (e *ExpressionEvaluator) Eval(expr string) (uint64, error) {
	tokens, err := Tokenize(expr)
	if err != nil {
		return 0, err
	}

	if len(tokens) == 0 {
		return 0, fmt.Errorf("empty expression")
	}

	result, remaining, err := e.parseOr(tokens)
	if err != nil {
		return 0, err
	}

	if len(remaining) > 0 {
		return 0, fmt.Errorf("unexpected token: %s", remaining[0].Value)
	}

	return result, nil
}

// Eval16 evaluates an expression that must fit a CPU address
func (e *ExpressionEvaluator) Eval16(expr string) (uint16, error) {
	value, err := e.Eval(expr)
	if err != nil {
		return 0, err
	}
	if value > 0xFFFF {
		return 0, fmt.Errorf("0x%X is not a 16 bit value", value)
	}
	return uint16(value), nil
}

var singleCharTokens = map[byte]TokenType{
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMul,
	'/': TokenDiv,
	'%': TokenMod,
	'&': TokenAnd,
	'|': TokenOr,
	'^': TokenXor,
	'[': TokenLBracket,
	']': TokenRBracket,
	'(': TokenLParen,
	')': TokenRParen,
}

// Tokenize breaks an expression into tokens
func Tokenize(expr string) ([]Token, error) {
	var tokens []Token

	for {
		expr = strings.TrimSpace(expr)
		if len(expr) == 0 {
			break
		}

		if kind, ok := singleCharTokens[expr[0]]; ok {
			tokens = append(tokens, Token{Type: kind, Value: expr[:1]})
			expr = expr[1:]
			continue
		}
		if strings.HasPrefix(expr, "<<") {
			tokens = append(tokens, Token{Type: TokenShiftLeft, Value: "<<"})
			expr = expr[2:]
			continue
		}
		if strings.HasPrefix(expr, ">>") {
			tokens = append(tokens, Token{Type: TokenShiftRight, Value: ">>"})
			expr = expr[2:]
			continue
		}

		// Hex number, either 0x1F or the assembler style $1F
		if len(expr) >= 2 && (expr[0] == '0' && (expr[1] == 'x' || expr[1] == 'X') || expr[0] == '$') {
			start := 2
			if expr[0] == '$' {
				start = 1
			}
			end := start
			for end < len(expr) && (IsHexDigit(expr[end]) || expr[end] == '_') {
				end++
			}
			numStr := strings.ReplaceAll(expr[start:end], "_", "")
			num, err := strconv.ParseUint(numStr, 16, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid hex number: %s", expr[:end])
			}
			tokens = append(tokens, Token{Type: TokenNumber, Value: expr[:end], Num: num})
			expr = expr[end:]
			continue
		}

		// Binary number (0b...)
		if len(expr) >= 2 && expr[0] == '0' && (expr[1] == 'b' || expr[1] == 'B') {
			end := 2
			for end < len(expr) && (expr[end] == '0' || expr[end] == '1' || expr[end] == '_') {
				end++
			}
			numStr := strings.ReplaceAll(expr[2:end], "_", "")
			num, err := strconv.ParseUint(numStr, 2, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid binary number: 0b%s", numStr)
			}
			tokens = append(tokens, Token{Type: TokenNumber, Value: expr[:end], Num: num})
			expr = expr[end:]
			continue
		}

		if IsDigit(expr[0]) {
			end := 0
			for end < len(expr) && IsDigit(expr[end]) {
				end++
			}
			numStr := expr[:end]
			num, err := strconv.ParseUint(numStr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number: %s", numStr)
			}
			tokens = append(tokens, Token{Type: TokenNumber, Value: numStr, Num: num})
			expr = expr[end:]
			continue
		}

		// Register or symbol
		if IsAlpha(expr[0]) || expr[0] == '_' || expr[0] == '.' {
			end := 0
			for end < len(expr) && (IsAlphaNum(expr[end]) || expr[end] == '_' || expr[end] == '.') {
				end++
			}
			name := expr[:end]
			nameLower := strings.ToLower(name)

			if IsRegisterName(nameLower) {
				tokens = append(tokens, Token{Type: TokenRegister, Value: nameLower})
			} else {
				tokens = append(tokens, Token{Type: TokenSymbol, Value: name})
			}
			expr = expr[end:]
			continue
		}

		return nil, fmt.Errorf("unexpected character: %c", expr[0])
	}

	return tokens, nil
}

// Character classification helpers
func IsDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func IsHexDigit(c byte) bool {
	return IsDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func IsAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func IsAlphaNum(c byte) bool {
	return IsAlpha(c) || IsDigit(c)
}

func IsRegisterName(name string) bool {
	switch name {
	case "a", "f", "b", "c", "d", "e", "h", "l":
		return true
	case "psw", "bc", "de", "hl", "sp", "pc", "cc":
		return true
	}
	return false
}

// Recursive descent parser with operator precedence
// Precedence (lowest to highest):
// 1. | (OR)
// 2. ^ (XOR)
// 3. & (AND)
// 4. << >> (shifts)
// 5. + - (add/sub)
// 6. * / % (mul/div/mod)
// 7. unary -, []

type binaryLevel struct {
	ops  map[TokenType]func(l, r uint64) (uint64, error)
	next func(e *ExpressionEvaluator, tokens []Token) (uint64, []Token, error)
}

func (e *ExpressionEvaluator) parseLevel(level binaryLevel, tokens []Token) (uint64, []Token, error) {
	left, tokens, err := level.next(e, tokens)
	if err != nil {
		return 0, nil, err
	}

	for len(tokens) > 0 {
		op, ok := level.ops[tokens[0].Type]
		if !ok {
			break
		}
		right, remaining, err := level.next(e, tokens[1:])
		if err != nil {
			return 0, nil, err
		}
		if left, err = op(left, right); err != nil {
			return 0, nil, err
		}
		tokens = remaining
	}

	return left, tokens, nil
}

func (e *ExpressionEvaluator) parseOr(tokens []Token) (uint64, []Token, error) {
	return e.parseLevel(binaryLevel{
		ops:  map[TokenType]func(l, r uint64) (uint64, error){TokenOr: func(l, r uint64) (uint64, error) { return l | r, nil }},
		next: (*ExpressionEvaluator).parseXor,
	}, tokens)
}

func (e *ExpressionEvaluator) parseXor(tokens []Token) (uint64, []Token, error) {
	return e.parseLevel(binaryLevel{
		ops:  map[TokenType]func(l, r uint64) (uint64, error){TokenXor: func(l, r uint64) (uint64, error) { return l ^ r, nil }},
		next: (*ExpressionEvaluator).parseAnd,
	}, tokens)
}

func (e *ExpressionEvaluator) parseAnd(tokens []Token) (uint64, []Token, error) {
	return e.parseLevel(binaryLevel{
		ops:  map[TokenType]func(l, r uint64) (uint64, error){TokenAnd: func(l, r uint64) (uint64, error) { return l & r, nil }},
		next: (*ExpressionEvaluator).parseShift,
	}, tokens)
}

func (e *ExpressionEvaluator) parseShift(tokens []Token) (uint64, []Token, error) {
	return e.parseLevel(binaryLevel{
		ops: map[TokenType]func(l, r uint64) (uint64, error){
			TokenShiftLeft:  func(l, r uint64) (uint64, error) { return l << r, nil },
			TokenShiftRight: func(l, r uint64) (uint64, error) { return l >> r, nil },
		},
		next: (*ExpressionEvaluator).parseAddSub,
	}, tokens)
}

func (e *ExpressionEvaluator) parseAddSub(tokens []Token) (uint64, []Token, error) {
	return e.parseLevel(binaryLevel{
		ops: map[TokenType]func(l, r uint64) (uint64, error){
			TokenPlus:  func(l, r uint64) (uint64, error) { return l + r, nil },
			TokenMinus: func(l, r uint64) (uint64, error) { return l - r, nil },
		},
		next: (*ExpressionEvaluator).parseMulDiv,
	}, tokens)
}

func (e *ExpressionEvaluator) parseMulDiv(tokens []Token) (uint64, []Token, error) {
	return e.parseLevel(binaryLevel{
		ops: map[TokenType]func(l, r uint64) (uint64, error){
			TokenMul: func(l, r uint64) (uint64, error) { return l * r, nil },
			TokenDiv: func(l, r uint64) (uint64, error) {
				if r == 0 {
					return 0, fmt.Errorf("division by zero")
				}
				return l / r, nil
			},
			TokenMod: func(l, r uint64) (uint64, error) {
				if r == 0 {
					return 0, fmt.Errorf("modulo by zero")
				}
				return l % r, nil
			},
		},
		next: (*ExpressionEvaluator).parseUnary,
	}, tokens)
}

func (e *ExpressionEvaluator) parseUnary(tokens []Token) (uint64, []Token, error) {
	if len(tokens) == 0 {
		return 0, nil, fmt.Errorf("unexpected end of expression")
	}

	if tokens[0].Type == TokenMinus {
		val, remaining, err := e.parseUnary(tokens[1:])
		if err != nil {
			return 0, nil, err
		}
		return -val, remaining, nil
	}

	// Memory dereference [expr], reads one byte of the CPU address space
	if tokens[0].Type == TokenLBracket {
		addr, remaining, err := e.parseOr(tokens[1:])
		if err != nil {
			return 0, nil, err
		}
		if len(remaining) == 0 || remaining[0].Type != TokenRBracket {
			return 0, nil, fmt.Errorf("expected ']' after memory address")
		}
		if addr > 0xFFFF {
			return 0, nil, fmt.Errorf("address 0x%X out of range", addr)
		}
		if e.context == nil {
			return 0, nil, fmt.Errorf("no memory to read from")
		}

		val, err := e.context.ReadMem(uint16(addr))
		if err != nil {
			return 0, nil, fmt.Errorf("cannot read memory at 0x%04X: %v", addr, err)
		}
		return uint64(val), remaining[1:], nil
	}

	return e.parsePrimary(tokens)
}

func (e *ExpressionEvaluator) parsePrimary(tokens []Token) (uint64, []Token, error) {
	if len(tokens) == 0 {
		return 0, nil, fmt.Errorf("unexpected end of expression")
	}

	tok := tokens[0]
	tokens = tokens[1:]

	switch tok.Type {
	case TokenNumber:
		return tok.Num, tokens, nil

	case TokenRegister:
		if e.context == nil {
			return 0, nil, fmt.Errorf("no registers to read from")
		}
		val, err := e.context.Register(tok.Value)
		if err != nil {
			return 0, nil, err
		}
		return val, tokens, nil

	case TokenSymbol:
		if val, ok := e.symbols[tok.Value]; ok {
			return val, tokens, nil
		}
		return 0, nil, fmt.Errorf("unknown symbol: %s", tok.Value)

	case TokenLParen:
		val, remaining, err := e.parseOr(tokens)
		if err != nil {
			return 0, nil, err
		}
		if len(remaining) == 0 || remaining[0].Type != TokenRParen {
			return 0, nil, fmt.Errorf("expected ')' after expression")
		}
		return val, remaining[1:], nil

	default:
		return 0, nil, fmt.Errorf("unexpected token: %s", tok.Value)
	}
}

// StateContext evaluates expressions against a CPU state snapshot
type StateContext struct {
	State  i8080.State
	Memory ScriptMemory
}

var _ EvalContext = StateContext{}

func (c StateContext) Register(name string) (uint64, error) {
	operand, err := ParseOperand(name)
	if err != nil {
		return 0, fmt.Errorf("unknown register: %s", name)
	}
	return operand.Value(c.State), nil
}

func (c StateContext) ReadMem(addr uint16) (uint8, error) {
	if c.Memory == nil {
		return 0, fmt.Errorf("no memory")
	}
	return c.Memory.GetByteRam(addr), nil
}

// FormatBinary formats a 16-bit value as a binary string with underscore separators
func FormatBinary(val uint16) string {
	return utils.FormatUintBinary(uint64(val>>8), 8) + "_" + utils.FormatUintBinary(uint64(val&0xFF), 8)
}
