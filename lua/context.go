package lua

import (
	"github.com/jumppad-labs/pluggable"
	lua "github.com/yuin/gopher-lua"
)

const contextTypeName = "pluggable.context"

// registerContextType installs the metatable that exposes the fields of a
// *pluggable.Context to Lua
func registerContextType(L *lua.LState) {
	mt := L.NewTypeMetatable(contextTypeName)
	L.SetField(mt, "__index", L.NewFunction(contextIndex))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		pc := checkContext(L, 1)
		L.Push(lua.LString("context(" + pc.Command.Name + ")"))
		return 1
	}))
}

// newContext wraps pc in userdata, converting the userdata back to Go
// returns pc
func newContext(L *lua.LState, pc *pluggable.Context) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = pc
	L.SetMetatable(ud, L.GetTypeMetatable(contextTypeName))

	return ud
}

func checkContext(L *lua.LState, n int) *pluggable.Context {
	ud := L.CheckUserData(n)
	if pc, ok := ud.Value.(*pluggable.Context); ok {
		return pc
	}

	L.ArgError(n, "context expected")
	return nil
}

func contextIndex(L *lua.LState) int {
	pc := checkContext(L, 1)
	key := L.CheckString(2)

	switch key {
	case "command":
		L.Push(lua.LString(pc.Command.Name))
	case "dryRun":
		L.Push(lua.LBool(pc.Command.DryRun))
	case "runID":
		L.Push(lua.LString(pc.RunID))
	case "args":
		L.Push(ToLuaValue(L, pc.Arguments))
	case "plugin":
		if pc.Plugin == nil {
			L.Push(lua.LNil)
			return 1
		}

		id := pc.Plugin.Source().Identity()
		t := L.NewTable()
		t.RawSetString("systemID", lua.LString(id.SystemID))
		t.RawSetString("friendlyName", lua.LString(id.FriendlyName))
		t.RawSetString("abbreviatedName", lua.LString(id.AbbreviatedName))
		t.RawSetString("nature", lua.LString(pc.Plugin.Nature().Identity))
		L.Push(t)
	case "report":
		L.Push(L.NewFunction(func(L *lua.LState) int {
			pc := checkContext(L, 1)
			pc.Report("%s", L.CheckString(2))
			return 0
		}))
	default:
		L.Push(lua.LNil)
	}

	return 1
}
