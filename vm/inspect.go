package vm

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Function describes an exported or imported wasm function
type Function struct {
	Module    string
	Name      string
	Signature string
}

// ModuleInfo lists what a wasm module exports and what it needs from the host
type ModuleInfo struct {
	Functions []Function
	Imports   []Function
	Memories  []string
}

// Methods returns the exports callable as contract methods
func (info *ModuleInfo) Methods() []string {
	var out []string
	for _, f := range info.Functions {
		if f.Signature == "(i32) -> (i32)" && f.Name != "allocate" {
			out = append(out, f.Name)
		}
	}
	return out
}

// Inspect compiles code without running it and reports its exports and imports
func Inspect(ctx context.Context, code []byte) (*ModuleInfo, error) {
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, "compile module")
	}
	defer compiled.Close(ctx)

	info := &ModuleInfo{}
	for name, def := range compiled.ExportedFunctions() {
		info.Functions = append(info.Functions, Function{Name: name, Signature: signature(def)})
	}
	for _, def := range compiled.ImportedFunctions() {
		module, name, _ := def.Import()
		info.Imports = append(info.Imports, Function{Module: module, Name: name, Signature: signature(def)})
	}
	for name := range compiled.ExportedMemories() {
		info.Memories = append(info.Memories, name)
	}

	sort.Slice(info.Functions, func(i, j int) bool { return info.Functions[i].Name < info.Functions[j].Name })
	sort.Slice(info.Imports, func(i, j int) bool {
		if info.Imports[i].Module != info.Imports[j].Module {
			return info.Imports[i].Module < info.Imports[j].Module
		}
		return info.Imports[i].Name < info.Imports[j].Name
	})
	sort.Strings(info.Memories)
	return info, nil
}

func signature(def api.FunctionDefinition) string {
	return "(" + typeList(def.ParamTypes()) + ") -> (" + typeList(def.ResultTypes()) + ")"
}

func typeList(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return strings.Join(names, ", ")
}
