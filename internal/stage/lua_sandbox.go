package stage

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"github.com/flarebyte/qr-ostraca/internal/config"
	lua "github.com/yuin/gopher-lua"
)

const (
	sandboxTimeoutViolation     = "sandbox timeout"
	sandboxInstructionViolation = "sandbox instruction limit"
	sandboxMemoryViolation      = "sandbox memory limit"
)

func luaSandboxOf(in Envelope) config.LuaSandbox {
	cfg := config.LuaSandbox{
		TimeoutMs:        config.DefaultLuaTimeoutMs,
		InstructionLimit: config.DefaultLuaInstructionLimit,
		MemoryLimitBytes: config.DefaultLuaMemoryLimitBytes,
	}
	s := settingsOf(in)
	if s == nil {
		return cfg
	}
	if s.LuaSandbox.TimeoutMs >= 0 {
		cfg.TimeoutMs = s.LuaSandbox.TimeoutMs
	}
	if s.LuaSandbox.InstructionLimit >= 0 {
		cfg.InstructionLimit = s.LuaSandbox.InstructionLimit
	}
	if s.LuaSandbox.MemoryLimitBytes >= 0 {
		cfg.MemoryLimitBytes = s.LuaSandbox.MemoryLimitBytes
	}
	return cfg
}

// newSandboxLuaState opens only base, string, table and math; no io, os or
// package access is ever available to a filter.
func newSandboxLuaState(stage, locator string, cfg config.LuaSandbox) *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:     true,
		RegistrySize:     256,
		RegistryMaxSize:  registryMaxFromMemory(cfg.MemoryLimitBytes),
		RegistryGrowStep: 0,
	})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.TabLibName, lua.OpenTable},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	// base opens these loaders; a filter has no business touching files.
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	installDeterministicRandom(L, deterministicSeed(stage, locator))
	return L
}

func registryMaxFromMemory(memoryLimitBytes int) int {
	if memoryLimitBytes <= 0 {
		return 256
	}
	n := memoryLimitBytes / 64
	if n < 128 {
		n = 128
	}
	if n > 4096 {
		n = 4096
	}
	return n
}

func deterministicSeed(stage, locator string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(stage))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(locator))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

func installDeterministicRandom(L *lua.LState, seed int64) {
	mathTbl, ok := L.GetGlobal("math").(*lua.LTable)
	if !ok || mathTbl == nil {
		return
	}
	rng := rand.New(rand.NewSource(seed))
	mathTbl.RawSetString("random", L.NewFunction(func(L *lua.LState) int {
		switch L.GetTop() {
		case 0:
			L.Push(lua.LNumber(rng.Float64()))
			return 1
		case 1:
			hi := L.CheckInt(1)
			if hi < 1 {
				L.ArgError(1, "interval is empty")
				return 0
			}
			L.Push(lua.LNumber(rng.Intn(hi) + 1))
			return 1
		default:
			lo := L.CheckInt(1)
			hi := L.CheckInt(2)
			if hi < lo {
				L.ArgError(2, "interval is empty")
				return 0
			}
			L.Push(lua.LNumber(rng.Intn(hi-lo+1) + lo))
			return 1
		}
	}))
	mathTbl.RawSetString("randomseed", L.NewFunction(func(L *lua.LState) int {
		return 0
	}))
}

// instructionLimitWouldTrip estimates the cost of code before running it.
// Any loop construct is priced as unbounded.
func instructionLimitWouldTrip(code string, instructionLimit int) bool {
	if instructionLimit <= 0 {
		return false
	}
	cost := len(code) * 10
	lower := strings.ToLower(code)
	if strings.Contains(lower, "while ") || strings.Contains(lower, "repeat") || strings.Contains(lower, "for ") {
		cost += 1000000
	}
	return cost > instructionLimit
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadline") || strings.Contains(msg, "context canceled")
}

func valueSize(v lua.LValue) int {
	switch x := v.(type) {
	case lua.LString:
		return len(x)
	case *lua.LTable:
		n := 0
		x.ForEach(func(k, v2 lua.LValue) {
			n += valueSize(k) + valueSize(v2)
		})
		return n
	case lua.LNumber:
		return 8
	default:
		return 1
	}
}

// runLuaScriptWithSandbox evaluates code with the given globals and returns
// its first result. A non-empty violation names the sandbox limit that
// stopped the script; err is reserved for script errors.
func runLuaScriptWithSandbox(stage string, cfg config.LuaSandbox, locator string, globals map[string]any, code string) (lua.LValue, string, error) {
	if instructionLimitWouldTrip(code, cfg.InstructionLimit) {
		return lua.LNil, sandboxInstructionViolation, nil
	}

	L := newSandboxLuaState(stage, locator, cfg)
	defer L.Close()

	if cfg.TimeoutMs > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.TimeoutMs)*time.Millisecond)
		defer cancel()
		L.SetContext(ctx)
	}

	for k, v := range globals {
		L.SetGlobal(k, toLValue(L, v))
	}

	fn, err := L.LoadString(code)
	if err != nil {
		return lua.LNil, "", err
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if isTimeoutError(err) {
			return lua.LNil, sandboxTimeoutViolation, nil
		}
		if strings.Contains(strings.ToLower(err.Error()), "registry overflow") {
			return lua.LNil, sandboxMemoryViolation, nil
		}
		return lua.LNil, "", err
	}
	ret := L.Get(-1)
	L.Pop(1)
	if cfg.MemoryLimitBytes > 0 && valueSize(ret) > cfg.MemoryLimitBytes {
		return lua.LNil, sandboxMemoryViolation, nil
	}
	return ret, "", nil
}

func luaViolationFailFast(stage, violation string) error {
	return fmt.Errorf("%s: %s", stage, violation)
}

// toLValue converts a Go value to a Lua value.
func toLValue(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(x)
	case bool:
		if x {
			return lua.LTrue
		}
		return lua.LFalse
	case int:
		return lua.LNumber(float64(x))
	case int64:
		return lua.LNumber(float64(x))
	case float64:
		return lua.LNumber(x)
	case []string:
		tbl := L.NewTable()
		for i, s := range x {
			tbl.RawSetInt(i+1, lua.LString(s))
		}
		return tbl
	default:
		return lua.LNil
	}
}
