package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/juristec/legisrag/internal/core/domain"
	"github.com/juristec/legisrag/internal/logger"
)

// Editors emit bursts of write events while saving; wait for the file to
// settle before ingesting.
const watchDebounce = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and index new documents",
	Long: `Watches the given directory and ingests supported files as they are
created or modified. Files whose content is already indexed are skipped.
Stops on Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.checkEmbedder(ctx); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(args[0]); err != nil {
		return fmt.Errorf("watching %s: %w", args[0], err)
	}
	cmd.Printf("Watching %s for documents...\n", args[0])

	var (
		mu      sync.Mutex
		pending = make(map[string]*time.Timer)
	)
	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if timer, ok := pending[path]; ok {
			timer.Reset(watchDebounce)
			return
		}
		pending[path] = time.AfterFunc(watchDebounce, func() {
			mu.Lock()
			delete(pending, path)
			mu.Unlock()
			ingestWatched(ctx, cmd, a, path)
		})
	}

	for {
		select {
		case <-ctx.Done():
			cmd.Println("Stopping watcher.")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			schedule(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error: %v", err)
		}
	}
}

func ingestWatched(ctx context.Context, cmd *cobra.Command, a *app, path string) {
	doc, err := a.Ingest.IngestFile(ctx, path, "")
	if err != nil {
		var dup *domain.DuplicateDocumentError
		switch {
		case errors.As(err, &dup):
			logger.Debug("Unchanged content: %s", path)
		case errors.Is(err, domain.ErrUnsupportedType):
			logger.Debug("Ignoring unsupported file: %s", path)
		default:
			logger.Error("Failed to ingest %s: %v", path, err)
		}
		return
	}
	cmd.Printf("Indexed %q: %d chunks (id %d)\n", doc.Name, doc.ChunkCount, doc.ID)
}
