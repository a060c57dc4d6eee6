package quirks

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/gethiox/evmoused/internal/pkg/logger"
)

// DetectChanges reports writes, creations and removals of quirk files under
// root. The channel is closed when ctx is done.
func DetectChanges(ctx context.Context, root string) (<-chan bool, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher failed: %w", err)
	}

	for _, path := range Dirs(root) {
		err = watcher.Add(path)
		if err != nil {
			log.Info(fmt.Sprintf("watching %s failed: %v", path, err), logger.Debug)
		}
	}

	var change = make(chan bool, 1)

	go func() {
		<-ctx.Done()
		err := watcher.Close()
		if err != nil {
			log.Info(fmt.Sprintf("closing watcher failed: %v", err), logger.Debug)
		}
	}()

	go func() {
		defer close(change)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if _, ok := FormatOf(event.Name); !ok {
					continue
				}
				log.Info(fmt.Sprintf("quirk change detected: %s", event.Name), logger.Info)
				select {
				case change <- true:
				default: // a change is already pending
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Info(fmt.Sprintf("quirk watcher error: %v", err), logger.Warning)
			}
		}
	}()

	return change, nil
}
