package machine

import (
	"fmt"
	"sort"
	"strings"
)

// Req is the kind of a request sent to the execution goroutine
type Req int

const (
	ReqNone Req = iota

	// Execution control
	ReqRun
	ReqStop
	ReqExit
	ReqReset
	ReqRestart
	ReqExecuteInstr
	ReqExecuteFrame
	ReqIsRunning

	// Machine state
	ReqGetCC
	ReqGetRegs
	ReqGetRegPC
	ReqGetByteGlobal
	ReqGetByteRam
	ReqGetThreeBytesRam
	ReqGetWordStack
	ReqSetMem
	ReqGetDisplayData
	ReqGetMemoryMapping
	ReqGetPIT
	ReqSetPITGate
	ReqGetHWStats
	ReqSetSpeed
	ReqGetSpeed
	ReqLoadRom

	// Debugger, forwarded to the attached debugger except DEBUG_ATTACH
	ReqDebugAttach
	ReqDebugReset
	ReqDebugBreakpointAdd
	ReqDebugBreakpointDel
	ReqDebugBreakpointDelAll
	ReqDebugBreakpointGetStatus
	ReqDebugBreakpointSetStatus
	ReqDebugBreakpointGetAll
	ReqDebugBreakpointGetUpdates
	ReqDebugWatchpointAdd
	ReqDebugWatchpointDel
	ReqDebugWatchpointDelAll
	ReqDebugWatchpointGetAll
	ReqDebugWatchpointGetUpdates
	ReqDebugTraceLogGet
	ReqDebugMemoryHeatGet
	ReqDebugScriptAdd
	ReqDebugScriptDel
	ReqDebugScriptSetActive
	ReqDebugScriptGetAll

	totalReqs
)

var reqNames = [totalReqs]string{
	ReqNone:                      "NONE",
	ReqRun:                       "RUN",
	ReqStop:                      "STOP",
	ReqExit:                      "EXIT",
	ReqReset:                     "RESET",
	ReqRestart:                   "RESTART",
	ReqExecuteInstr:              "EXECUTE_INSTR",
	ReqExecuteFrame:              "EXECUTE_FRAME",
	ReqIsRunning:                 "IS_RUNNING",
	ReqGetCC:                     "GET_CC",
	ReqGetRegs:                   "GET_REGS",
	ReqGetRegPC:                  "GET_REG_PC",
	ReqGetByteGlobal:             "GET_BYTE_GLOBAL",
	ReqGetByteRam:                "GET_BYTE_RAM",
	ReqGetThreeBytesRam:          "GET_THREE_BYTES_RAM",
	ReqGetWordStack:              "GET_WORD_STACK",
	ReqSetMem:                    "SET_MEM",
	ReqGetDisplayData:            "GET_DISPLAY_DATA",
	ReqGetMemoryMapping:          "GET_MEMORY_MAPPING",
	ReqGetPIT:                    "GET_PIT",
	ReqSetPITGate:                "SET_PIT_GATE",
	ReqGetHWStats:                "GET_HW_STATS",
	ReqSetSpeed:                  "SET_SPEED",
	ReqGetSpeed:                  "GET_SPEED",
	ReqLoadRom:                   "LOAD_ROM",
	ReqDebugAttach:               "DEBUG_ATTACH",
	ReqDebugReset:                "DEBUG_RESET",
	ReqDebugBreakpointAdd:        "DEBUG_BREAKPOINT_ADD",
	ReqDebugBreakpointDel:        "DEBUG_BREAKPOINT_DEL",
	ReqDebugBreakpointDelAll:     "DEBUG_BREAKPOINT_DEL_ALL",
	ReqDebugBreakpointGetStatus:  "DEBUG_BREAKPOINT_GET_STATUS",
	ReqDebugBreakpointSetStatus:  "DEBUG_BREAKPOINT_SET_STATUS",
	ReqDebugBreakpointGetAll:     "DEBUG_BREAKPOINT_GET_ALL",
	ReqDebugBreakpointGetUpdates: "DEBUG_BREAKPOINT_GET_UPDATES",
	ReqDebugWatchpointAdd:        "DEBUG_WATCHPOINT_ADD",
	ReqDebugWatchpointDel:        "DEBUG_WATCHPOINT_DEL",
	ReqDebugWatchpointDelAll:     "DEBUG_WATCHPOINT_DEL_ALL",
	ReqDebugWatchpointGetAll:     "DEBUG_WATCHPOINT_GET_ALL",
	ReqDebugWatchpointGetUpdates: "DEBUG_WATCHPOINT_GET_UPDATES",
	ReqDebugTraceLogGet:          "DEBUG_TRACE_LOG_GET",
	ReqDebugMemoryHeatGet:        "DEBUG_MEMORY_HEAT_GET",
	ReqDebugScriptAdd:            "DEBUG_SCRIPT_ADD",
	ReqDebugScriptDel:            "DEBUG_SCRIPT_DEL",
	ReqDebugScriptSetActive:      "DEBUG_SCRIPT_SET_ACTIVE",
	ReqDebugScriptGetAll:         "DEBUG_SCRIPT_GET_ALL",
}

func (r Req) String() string {
	if r.Valid() || r == ReqNone {
		return reqNames[r]
	}
	return fmt.Sprintf("Req(%d)", int(r))
}

// Whether the request kind is known. ReqNone is not a valid request.
func (r Req) Valid() bool {
	return r > ReqNone && r < totalReqs
}

// Whether the request is served by the debugger
func (r Req) IsDebug() bool {
	return r >= ReqDebugAttach && r < totalReqs
}

// Parses a request kind by name, case insensitive
func ParseReq(name string) (Req, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for r := ReqRun; r < totalReqs; r++ {
		if reqNames[r] == name {
			return r, nil
		}
	}
	return ReqNone, fmt.Errorf("unknown request '%s'", name)
}

// Names of all valid request kinds
func ReqNames() []string {
	names := make([]string, 0, int(totalReqs)-1)
	for r := ReqRun; r < totalReqs; r++ {
		names = append(names, reqNames[r])
	}
	return names
}

// Data is the parameter and result bag of a request
type Data map[string]any

// Returns a value as an unsigned integer, accepting any integer or float representation
func (d Data) Uint64(key string) (uint64, bool) {
	switch v := d[key].(type) {
	case uint64:
		return v, true
	case uint32:
		return uint64(v), true
	case uint16:
		return uint64(v), true
	case uint8:
		return uint64(v), true
	case uint:
		return uint64(v), true
	case int:
		return uint64(v), v >= 0
	case int64:
		return uint64(v), v >= 0
	case int32:
		return uint64(v), v >= 0
	case float64:
		return uint64(v), v >= 0
	}
	return 0, false
}

// Returns a value as a signed integer
func (d Data) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case int32:
		return int(v), true
	case float64:
		return int(v), true
	}
	u, ok := d.Uint64(key)
	return int(u), ok
}

func (d Data) Bool(key string) (bool, bool) {
	v, ok := d[key].(bool)
	return v, ok
}

func (d Data) Text(key string) (string, bool) {
	v, ok := d[key].(string)
	return v, ok
}

func (d Data) Bytes(key string) ([]byte, bool) {
	v, ok := d[key].([]byte)
	return v, ok
}

// Returns an unsigned integer or a default value if the key is absent or invalid
func (d Data) Uint64Or(key string, def uint64) uint64 {
	if v, ok := d.Uint64(key); ok {
		return v
	}
	return def
}

// Sorted keys, for stable rendering
func (d Data) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type request struct {
	kind   Req
	params Data
}

type response struct {
	data Data
	ok   bool
}
