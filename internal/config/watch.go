package config

import (
	"context"
	"os"
	"time"
)

// WatchUI polls the config file and calls onUpdate with the ui section each
// time the file changes. The first load happens before WatchUI returns.
func WatchUI(ctx context.Context, path string, interval time.Duration, onUpdate func(UI)) error {
	if path == "" {
		path = DefaultPath
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	cfg, err := Load(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()
	if onUpdate != nil {
		onUpdate(cfg.UI)
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil || !info.ModTime().After(lastMod) {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					continue
				}
				lastMod = info.ModTime()
				if onUpdate != nil {
					onUpdate(cfg.UI)
				}
			}
		}
	}()
	return nil
}
