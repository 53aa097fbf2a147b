package scripting

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/l1jgo/fragments/internal/app"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"go.uber.org/zap"
)

// APIVersion is exposed to scripts as the API_VERSION global.
const APIVersion = 1

// ErrUnknownScript is returned for a script name that was not loaded.
var ErrUnknownScript = errors.New("unknown script")

// Engine holds the compiled scripts of a directory. Compiled code is shared;
// every mounted script gets its own VM, so widgets never share Lua state.
type Engine struct {
	protos map[string]*lua.FunctionProto
	log    *zap.Logger
}

// NewEngine compiles every .lua file in scriptsDir. A missing directory
// yields an empty engine.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := &Engine{
		protos: make(map[string]*lua.FunctionProto),
		log:    log.With(zap.String("component", "scripting")),
	}
	if err := e.loadDir(scriptsDir); err != nil {
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// loadDir compiles all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // no scripts
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := e.Add(entry.Name(), src); err != nil {
			return err
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Add compiles src and registers it under name, replacing any earlier script
// of the same name.
func (e *Engine) Add(name string, src []byte) error {
	chunk, err := parse.Parse(bytes.NewReader(src), name)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return fmt.Errorf("compile %s: %w", name, err)
	}
	e.protos[name] = proto
	return nil
}

// Names lists the loaded scripts in sorted order.
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.protos))
	for n := range e.protos {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Widget returns a widget running the named script.
func (e *Engine) Widget(name string) (app.Widget[struct{}], error) {
	proto, ok := e.protos[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScript, name)
	}
	return Script{name: name, proto: proto, log: e.log.With(zap.String("script", name))}, nil
}
