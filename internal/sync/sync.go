// Package sync reconciles configured deck sources into the card store.
// Sources are local directories or git repositories containing markdown
// deck files; cards already in the collection (by normalized content
// hash) are not imported twice, so re-syncing is idempotent.
package sync

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/gitsource"
	"github.com/conorfennell/flashdeck/internal/parser"
	"github.com/conorfennell/flashdeck/internal/storage"
)

// Adopter is the slice of the card store a sync pass writes through.
type Adopter interface {
	Adopt(cards []domain.Card) int
}

// DetectType classifies a source path as "git" or "local".
func DetectType(path string) string {
	if strings.HasSuffix(path, ".git") || strings.HasPrefix(path, "git@") ||
		strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "http://") {
		return "git"
	}
	return "local"
}

// Run iterates over every configured source and imports any new cards it
// finds. Failures on one source are logged and do not stop the rest.
// Returns the total number of cards added.
func Run(ctx context.Context, db *storage.DB, store Adopter, reposDir string) int {
	slog.Info("starting sync pass over deck sources")
	sources, err := db.GetAllSources()
	if err != nil {
		slog.Error("failed to get sources", "error", err)
		return 0
	}
	if len(sources) == 0 {
		slog.Info("no deck sources configured")
		return 0
	}

	total := 0
	for _, source := range sources {
		slog.Info("syncing source", "id", source.ID, "type", source.Type, "path", source.Path)

		scanPath := source.Path
		if source.Type == "git" {
			localRepoPath, err := gitURLToLocalPath(reposDir, source.Path)
			if err != nil {
				slog.Error("cannot determine local path for git source", "url", source.Path, "error", err)
				continue
			}
			if err := gitsource.Sync(ctx, source.Path, localRepoPath); err != nil {
				slog.Error("failed to sync git source", "url", source.Path, "error", err)
				continue
			}
			scanPath = localRepoPath
		}

		added, err := importDeckFiles(scanPath, store)
		if err != nil {
			slog.Error("failed to scan source", "path", scanPath, "error", err)
			continue
		}
		total += added

		if err := db.UpdateSourceLastScanned(source.ID); err != nil {
			slog.Warn("failed to update last scanned for source", "source_id", source.ID, "error", err)
		}
		slog.Info("source reconciled", "path", source.Path, "cards_added", added)
	}
	slog.Info("sync pass complete", "cards_added", total)
	return total
}

// importDeckFiles walks root for .md deck files and adopts their cards.
func importDeckFiles(root string, store Adopter) (int, error) {
	var parsed []domain.Card
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		fileCards, parseErr := parser.ParseFile(path)
		if parseErr != nil {
			slog.Warn("skipping unreadable deck file", "path", path, "error", parseErr)
			return nil
		}
		parsed = append(parsed, fileCards...)
		return nil
	})
	if walkErr != nil {
		return 0, walkErr
	}
	return store.Adopt(parsed), nil
}

// gitURLToLocalPath maps a git URL onto a stable checkout directory under
// baseDir, handling both https and scp-style git@host:path URLs.
func gitURLToLocalPath(baseDir, repoURL string) (string, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create repos directory: %w", err)
	}

	parsedURL, err := url.Parse(repoURL)
	if err != nil || (parsedURL.Scheme != "https" && parsedURL.Scheme != "http") {
		if strings.Contains(repoURL, "@") {
			parts := strings.Split(repoURL, ":")
			if len(parts) == 2 {
				hostAndUser := strings.Split(parts[0], "@")
				if len(hostAndUser) == 2 {
					host := hostAndUser[1]
					repoPath := strings.TrimSuffix(parts[1], ".git")
					return filepath.Join(baseDir, host, repoPath), nil
				}
			}
		}
		return "", fmt.Errorf("could not parse git URL: %s", repoURL)
	}

	sanitizedPath := strings.TrimSuffix(parsedURL.Path, ".git")
	return filepath.Join(baseDir, parsedURL.Host, sanitizedPath), nil
}
