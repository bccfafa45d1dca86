package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tetratelabs/wazero/api"
	"golang.org/x/term"

	"github.com/luaugo/luauhost/assert"
	"github.com/luaugo/luauhost/config"
	"github.com/luaugo/luauhost/engine"
	"github.com/luaugo/luauhost/runtime"
)

func main() {
	var (
		wasmFile     = flag.String("wasm", "", "Path to runtime build wasm file")
		manifestFile = flag.String("manifest", "", "Path to manifest JSON (optional)")
		configFile   = flag.String("config", "", "Path to host config YAML (optional)")
		funcName     = flag.String("func", "", "Function to call (optional)")
		argsStr      = flag.String("args", "", "Integer arguments (comma-separated)")
		list         = flag.Bool("list", false, "List exported functions and exit")
		dumpConfig   = flag.Bool("dump-config", false, "Print effective config and exit")
		interactive  = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *dumpConfig {
		if err := cfg.Dump(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: luau-run -wasm <file.wasm> [-manifest file.json] [-func name] [-args 1,2]")
		fmt.Fprintln(os.Stderr, "       luau-run -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       luau-run -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(*wasmFile, *manifestFile, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, *wasmFile, *manifestFile, *funcName, *argsStr, *list); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, wasmFile, manifestFile, funcName, argsStr string, listOnly bool) error {
	ctx := context.Background()

	log, err := cfg.BuildLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	engine.SetLogger(log)

	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	bridge := assert.NewBridge()
	bridge.Register(cfg.AssertHandler(log))

	rt, err := runtime.New(ctx, runtime.Options{
		Engine: cfg.EngineConfig(),
		Bridge: bridge,
	})
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close(ctx)

	mod, err := loadModule(ctx, rt, data, manifestFile)
	if err != nil {
		return err
	}

	fmt.Printf("Build: %s (%s)\n", wasmFile, mod.Manifest().Name)

	names := exportNames(mod)
	fmt.Printf("\nExported functions:\n")
	for _, name := range names {
		fmt.Printf("  %s\n", formatExport(name, mod.ExportedFunctions()[name]))
	}

	if listOnly {
		return nil
	}

	if funcName == "" {
		fmt.Printf("\nNo function specified. Use -func to call one.\n")
		return nil
	}

	args, err := parseArgs(argsStr)
	if err != nil {
		return err
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer inst.Close(ctx)

	fmt.Printf("\nCalling %s(%s)...\n", funcName, argsStr)
	results, err := inst.Call(ctx, funcName, args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}

	fmt.Printf("Result: %v\n", results)
	return nil
}

func loadModule(ctx context.Context, rt *runtime.Runtime, wasm []byte, manifestFile string) (*runtime.Module, error) {
	if manifestFile == "" {
		mod, err := rt.LoadModule(ctx, wasm)
		if err != nil {
			return nil, fmt.Errorf("load build: %w", err)
		}
		return mod, nil
	}
	manifestJSON, err := os.ReadFile(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	mod, err := rt.LoadModuleWithManifest(ctx, wasm, manifestJSON)
	if err != nil {
		return nil, fmt.Errorf("load build: %w", err)
	}
	return mod, nil
}

func exportNames(mod *runtime.Module) []string {
	var names []string
	for name := range mod.ExportedFunctions() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func formatExport(name string, def api.FunctionDefinition) string {
	var params []string
	for _, p := range def.ParamTypes() {
		params = append(params, api.ValueTypeName(p))
	}
	result := ""
	if rs := def.ResultTypes(); len(rs) > 0 {
		result = " -> " + api.ValueTypeName(rs[0])
	}
	return name + "(" + strings.Join(params, ", ") + ")" + result
}

func parseArgs(argsStr string) ([]uint64, error) {
	if argsStr == "" {
		return nil, nil
	}
	var args []uint64
	for _, s := range strings.Split(argsStr, ",") {
		s = strings.TrimSpace(s)
		v, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", s, err)
		}
		args = append(args, uint64(v))
	}
	return args, nil
}
