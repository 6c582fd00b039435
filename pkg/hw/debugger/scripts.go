package debugger

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/Manu343726/devector/pkg/hw/cpu/i8080"
	"github.com/Manu343726/devector/pkg/utils"
)

var ErrScript = errors.New("script error")

// ScriptMemory is what scripts can read through mem(addr)
type ScriptMemory interface {
	GetByteRam(addr uint16) uint8
}

// Script is a Lua chunk defining a check() function. Returning true from it
// stops the machine.
type Script struct {
	ID      int    `yaml:"id"`
	Source  string `yaml:"source"`
	Active  bool   `yaml:"active"`
	Comment string `yaml:"comment,omitempty"`
	// Error that disabled the script, if any
	Err string `yaml:"error,omitempty"`

	state *lua.LState
	check lua.LValue
}

// Scripts owns one Lua state per script. Only the execution goroutine uses it.
type Scripts struct {
	logger *slog.Logger
	byID   map[int]*Script
	nextID int
	memory ScriptMemory
}

func NewScripts(logger *slog.Logger) *Scripts {
	return &Scripts{logger: logger, byID: map[int]*Script{}}
}

func (s *Scripts) compile(script *Script) error {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.MathLibName, lua.OpenMath},
		{lua.StringLibName, lua.OpenString},
		{lua.TabLibName, lua.OpenTable},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	L.SetGlobal("mem", L.NewFunction(func(L *lua.LState) int {
		addr := L.CheckInt(1)
		if s.memory == nil || addr < 0 || addr > 0xFFFF {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LNumber(s.memory.GetByteRam(uint16(addr))))
		return 1
	}))

	if err := L.DoString(script.Source); err != nil {
		L.Close()
		return utils.MakeError(ErrScript, "%v", err)
	}

	check := L.GetGlobal("check")
	if check.Type() != lua.LTFunction {
		L.Close()
		return utils.MakeError(ErrScript, "script does not define a check() function")
	}

	script.state = L
	script.check = check
	return nil
}

// Add compiles and activates a script, returning its id
func (s *Scripts) Add(source, comment string) (int, error) {
	script := &Script{ID: s.nextID, Source: source, Comment: comment, Active: true}
	if err := s.compile(script); err != nil {
		return 0, err
	}
	s.nextID++
	s.byID[script.ID] = script
	return script.ID, nil
}

func (s *Scripts) Del(id int) bool {
	script, ok := s.byID[id]
	if !ok {
		return false
	}
	script.state.Close()
	delete(s.byID, id)
	return true
}

func (s *Scripts) SetActive(id int, active bool) bool {
	script, ok := s.byID[id]
	if ok {
		script.Active = active
		if active {
			script.Err = ""
		}
	}
	return ok
}

// All scripts sorted by id
func (s *Scripts) All() []Script {
	result := make([]Script, 0, len(s.byID))
	for _, script := range s.byID {
		result = append(result, *script)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (s *Scripts) Len() int {
	return len(s.byID)
}

// Check runs every active script against the CPU state. A script failing at
// runtime is deactivated.
func (s *Scripts) Check(state i8080.State, memory ScriptMemory) bool {
	if len(s.byID) == 0 {
		return false
	}
	s.memory = memory
	defer func() { s.memory = nil }()

	stop := false
	for _, script := range s.byID {
		if !script.Active {
			continue
		}
		hit, err := script.run(state)
		if err != nil {
			script.Active = false
			script.Err = err.Error()
			s.logger.Warn("script disabled", "id", script.ID, "error", err)
			continue
		}
		stop = stop || hit
	}
	return stop
}

func (s *Script) run(state i8080.State) (bool, error) {
	L := s.state
	L.SetGlobal("pc", lua.LNumber(state.PC))
	L.SetGlobal("sp", lua.LNumber(state.SP))
	L.SetGlobal("a", lua.LNumber(state.A))
	L.SetGlobal("f", lua.LNumber(state.F))
	L.SetGlobal("b", lua.LNumber(state.B))
	L.SetGlobal("c", lua.LNumber(state.C))
	L.SetGlobal("d", lua.LNumber(state.D))
	L.SetGlobal("e", lua.LNumber(state.E))
	L.SetGlobal("h", lua.LNumber(state.H))
	L.SetGlobal("l", lua.LNumber(state.L))
	L.SetGlobal("cc", lua.LNumber(state.CC))

	if err := L.CallByParam(lua.P{Fn: s.check, NRet: 1, Protect: true}); err != nil {
		return false, fmt.Errorf("check(): %w", err)
	}
	result := L.Get(-1)
	L.Pop(1)
	return lua.LVAsBool(result), nil
}

// Close releases every Lua state
func (s *Scripts) Close() {
	for id := range s.byID {
		s.Del(id)
	}
}
