package scripting

import (
	"context"
	"fmt"
	"time"

	"github.com/l1jgo/fragments/internal/app"
	"github.com/l1jgo/fragments/internal/core/ecs"
	"github.com/l1jgo/fragments/internal/widget"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Script is a widget backed by a compiled Lua chunk. The chunk runs once, top
// to bottom, with these globals:
//
//	set(text)      replace the fragment's content
//	name(text)     set the fragment's name
//	sleep(seconds) block, aborting when the widget is cancelled
//	log(text)      write an info log line
//
// Only the base, table, string and math libraries are opened; scripts get no
// os, io or package access. The VM is bound to the widget's context, so
// despawning the fragment stops even a script stuck in a busy loop.
type Script struct {
	name  string
	proto *lua.FunctionProto
	log   *zap.Logger
}

func (s Script) Name() string { return s.name }

func (s Script) Mount(ctx context.Context, f *app.Fragment) (struct{}, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer vm.Close()
	if err := openLibs(vm); err != nil {
		return struct{}{}, fmt.Errorf("script %s: %w", s.name, err)
	}
	vm.SetContext(ctx)

	log := s.log.With(zap.Stringer("entity", f.ID()))
	s.register(ctx, vm, f, log)

	if err := vm.CallByParam(lua.P{
		Fn:      vm.NewFunctionFromProto(s.proto),
		NRet:    0,
		Protect: true,
	}); err != nil {
		if ctx.Err() != nil {
			return struct{}{}, ctx.Err()
		}
		log.Error("lua script error", zap.Error(err))
		return struct{}{}, fmt.Errorf("script %s: %w", s.name, err)
	}
	return struct{}{}, nil
}

var libs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

func openLibs(vm *lua.LState) error {
	for _, lib := range libs {
		if err := vm.CallByParam(lua.P{
			Fn:      vm.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("open %s library: %w", lib.name, err)
		}
	}
	return nil
}

func (s Script) register(ctx context.Context, vm *lua.LState, f *app.Fragment, log *zap.Logger) {
	vm.SetGlobal("API_VERSION", lua.LNumber(APIVersion))
	vm.SetGlobal("set", vm.NewFunction(func(L *lua.LState) int {
		if _, err := (widget.Text{Value: L.CheckString(1)}).Mount(ctx, f); err != nil {
			L.RaiseError("set: %v", err)
		}
		return 0
	}))
	vm.SetGlobal("name", vm.NewFunction(func(L *lua.LState) int {
		if err := f.Set(ecs.Name.With(L.CheckString(1))); err != nil {
			L.RaiseError("name: %v", err)
		}
		return 0
	}))
	vm.SetGlobal("sleep", vm.NewFunction(func(L *lua.LState) int {
		d := time.Duration(float64(L.CheckNumber(1)) * float64(time.Second))
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			L.RaiseError("sleep: %v", ctx.Err())
		}
		return 0
	}))
	vm.SetGlobal("log", vm.NewFunction(func(L *lua.LState) int {
		log.Info(L.CheckString(1))
		return 0
	}))
}
