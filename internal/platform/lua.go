package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable creates a read-only platform table and injects it into
// the Lua state as a global. key may be zero when the host could not be
// resolved; the raw identifiers are still exposed.
func InjectPlatformTable(L *lua.LState, info *Info, key Key) error {
	platformTable := L.NewTable()

	L.SetField(platformTable, "os", lua.LString(key.OS))
	L.SetField(platformTable, "arch", lua.LString(key.Arch))
	L.SetField(platformTable, "target", lua.LString(targetString(key)))
	L.SetField(platformTable, "raw_os", lua.LString(info.OS))
	L.SetField(platformTable, "raw_arch", lua.LString(info.Arch))

	L.SetField(platformTable, "is_linux", lua.LBool(key.OS == OSLinux))
	L.SetField(platformTable, "is_macos", lua.LBool(key.OS == OSMacOS))
	L.SetField(platformTable, "is_windows", lua.LBool(key.OS == OSWindows))
	L.SetField(platformTable, "is_x64", lua.LBool(key.Arch == ArchX64))
	L.SetField(platformTable, "is_arm64", lua.LBool(key.Arch == ArchARM64))
	L.SetField(platformTable, "is_apple_silicon", lua.LBool(key.OS == OSMacOS && key.Arch == ArchARM64))

	if distro := info.GetDistro(); distro != nil {
		distroTable := L.NewTable()
		L.SetField(distroTable, "id", lua.LString(distro.ID))
		L.SetField(distroTable, "family", lua.LString(distro.Family))
		L.SetField(distroTable, "version", lua.LString(distro.Version))
		L.SetField(platformTable, "distro", distroTable)
	} else {
		L.SetField(platformTable, "distro", lua.LNil)
	}

	// when(condition, value) returns value if condition is true, nil otherwise
	whenFunc := L.NewFunction(func(L *lua.LState) int {
		cond := L.CheckBool(1)
		value := L.Get(2)
		if cond {
			L.Push(value)
		} else {
			L.Push(lua.LNil)
		}
		return 1
	})
	L.SetField(platformTable, "when", whenFunc)

	L.SetGlobal("platform", makeReadOnly(L, platformTable))

	return nil
}

func targetString(key Key) string {
	if key.IsZero() {
		return ""
	}
	return key.String()
}

// makeReadOnly returns a proxy table that redirects reads to table and
// rejects all writes.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()

	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)

	return proxy
}
