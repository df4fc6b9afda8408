package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/inkwell-cms/inkwell/internal/backend"
	"github.com/inkwell-cms/inkwell/internal/config"
	"github.com/inkwell-cms/inkwell/internal/draft"
	"github.com/inkwell-cms/inkwell/internal/model"
	"github.com/inkwell-cms/inkwell/internal/util"
)

// main parses flags and pushes every .md file in the directory to the
// content API as a draft.
func main() {
	path := flag.String("path", "", "Path to the directory containing .md files")
	ownerID := flag.String("owner-id", "", "Owner user ID for the drafts")
	configPath := flag.String("config", "config.yaml", "Path to the config file")
	flag.Parse()

	if *path == "" || *ownerID == "" {
		log.Fatal("Both --path and --owner-id flags are required")
	}

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	cfg := config.AppConfig

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout())

	files, err := os.ReadDir(*path)
	if err != nil {
		log.Fatalf("Error reading directory %s: %v", *path, err)
	}

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".md") {
			continue
		}

		if err := importFile(client, *path, file.Name(), model.UserID(*ownerID)); err != nil {
			log.Printf("Error importing file %s: %v", file.Name(), err)
			continue
		}
		log.Printf("Successfully imported draft from file: %s", file.Name())
	}
}

func importFile(client *backend.Client, dirPath, name string, owner model.UserID) error {
	content, err := os.ReadFile(filepath.Join(dirPath, name))
	if err != nil {
		return err
	}

	title := strings.TrimSuffix(name, ".md")
	if fm, err := util.GetFrontMatter(content); err == nil && fm.Title != "" {
		title = fm.Title
	}

	d := &model.Draft{
		Title:       title,
		Content:     string(content),
		Owner:       owner,
		Status:      model.StatusDraft,
		ReadingTime: draft.ReadingTime(string(content)),
	}

	saved, err := client.Create(context.Background(), d)
	if err != nil {
		return err
	}

	log.Printf("Created draft %s (%d minute read)", saved.ID, saved.ReadingTime)
	return nil
}
