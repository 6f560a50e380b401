package config

import (
	"context"
	"os"
	"time"
)

// WatchFile calls load for path once, then again each time its mod time advances.
// onUpdate receives each successful result. Errors after the initial load are skipped.
func WatchFile[T any](ctx context.Context, path string, interval time.Duration, load func(string) (T, error), onUpdate func(T)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	v, err := load(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(v)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				v, err := load(path)
				if err != nil {
					continue
				}
				lastMod = info.ModTime()
				if onUpdate != nil {
					onUpdate(v)
				}
			}
		}
	}()

	return nil
}
