package obj

import (
	"fmt"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/survivor/prefabs"
)

// WaveScript decides what a spawn tick produces. The script sees elapsed
// (seconds), roll (uniform in [0, 1)) and types, and sets pick and count.
// A pick of -1 skips the tick.
type WaveScript struct {
	name     string
	compiled *tengo.Compiled
}

// LoadWaveScript compiles the named script from prefabs.
func LoadWaveScript(name string) (*WaveScript, error) {
	src, err := prefabs.LoadScript(name)
	if err != nil {
		return nil, fmt.Errorf("wave: load %s: %w", name, err)
	}
	return CompileWaveScript(name, src)
}

func CompileWaveScript(name string, src []byte) (*WaveScript, error) {
	script := tengo.NewScript(src)
	_ = script.Add("elapsed", 0.0)
	_ = script.Add("roll", 0.0)
	_ = script.Add("types", 0)
	_ = script.Add("pick", 0)
	_ = script.Add("count", 1)
	script.SetImports(stdlib.GetModuleMap("math", "rand"))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("wave: compile %s: %w", name, err)
	}
	return &WaveScript{name: name, compiled: compiled}, nil
}

func (ws *WaveScript) Name() string {
	if ws == nil {
		return ""
	}
	return ws.name
}

// Pick runs the script once. Without a script every tick spawns one unit of
// type 0.
func (ws *WaveScript) Pick(elapsed time.Duration, roll float64, types int) (pick, count int, err error) {
	if ws == nil || ws.compiled == nil {
		return 0, 1, nil
	}
	if err := ws.compiled.Set("elapsed", elapsed.Seconds()); err != nil {
		return 0, 0, err
	}
	if err := ws.compiled.Set("roll", roll); err != nil {
		return 0, 0, err
	}
	if err := ws.compiled.Set("types", types); err != nil {
		return 0, 0, err
	}
	if err := ws.compiled.Set("pick", 0); err != nil {
		return 0, 0, err
	}
	if err := ws.compiled.Set("count", 1); err != nil {
		return 0, 0, err
	}
	if err := ws.compiled.Run(); err != nil {
		return 0, 0, fmt.Errorf("wave: run %s: %w", ws.name, err)
	}
	return ws.compiled.Get("pick").Int(), ws.compiled.Get("count").Int(), nil
}
