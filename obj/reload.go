package obj

import (
	"log"
	"path/filepath"

	"github.com/milk9111/survivor/prefabs"
)

// HandleChange reloads whatever a watcher change touched. specName is the
// spec the arena was built from. Failures are logged and keep the running
// config.
func (a *Arena) HandleChange(specName string, change prefabs.Change) {
	switch change.Kind {
	case prefabs.ChangeSpec:
		if filepath.Base(change.Path) != filepath.Base(specName) {
			return
		}
		spec, err := prefabs.LoadSurvivalSpec(specName)
		if err != nil {
			log.Printf("reload: %v", err)
			return
		}
		if err := a.ApplySpec(spec); err != nil {
			log.Printf("reload: %v", err)
		}
	case prefabs.ChangeScript:
		script := a.spec.Spawner.Script
		if script == "" || filepath.Base(change.Path) != filepath.Base(script) {
			return
		}
		if err := a.spawner.ReloadScript(); err != nil {
			log.Printf("reload: %v", err)
			return
		}
		log.Printf("reload: wave script %s", change.Path)
	}
}

// DrainChanges applies pending watcher changes without blocking.
func (a *Arena) DrainChanges(specName string, w *prefabs.Watcher) {
	if w == nil {
		return
	}
	for {
		select {
		case change, ok := <-w.Changes:
			if !ok {
				return
			}
			a.HandleChange(specName, change)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("watch: %v", err)
		default:
			return
		}
	}
}
