package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dpetrenko/filekeeper/internal/client/models"
)

func (a *App) getStatus() string {
	s := ""
	if a.Mode != "" {
		s = fmt.Sprintf("(%s)", a.Mode)
	}
	return s
}

func (a *App) Root(ctx context.Context) {
	log.Println("Welcome to FileKeeper CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}

func (a *App) Upload(ctx context.Context, path, parentDirID string) error {
	rec, err := a.manager.Initiate(ctx, path, parentDirID)
	if err != nil {
		log.Println(err.Error())
		return err
	}
	fmt.Printf("uploading %s as %s\n", rec.FileName, rec.ID)
	return nil
}

func (a *App) List(ctx context.Context) error {
	records := a.manager.GetAll()
	if len(records) == 0 {
		fmt.Println("no uploads")
		return nil
	}
	for _, rec := range records {
		fmt.Println(formatRecord(rec))
	}
	return nil
}

// formatRecord renders one registry row for the list command.
func formatRecord(rec *models.UploadRecord) string {
	s := fmt.Sprintf("%s  %-20s  %8d B  %-10s %3.0f%%", rec.ID, rec.FileName, rec.FileSizeBytes, rec.Status, rec.ProgressPercent)
	if rec.Status == models.StatusFailed {
		s += fmt.Sprintf("  (%s)", rec.FailReason)
	}
	return s
}

func (a *App) Pause(ctx context.Context, id string) error {
	if err := a.manager.Pause(ctx, id); err != nil {
		log.Println(err.Error())
		return err
	}
	return nil
}

func (a *App) Resume(ctx context.Context, id string) error {
	if err := a.manager.Resume(ctx, id); err != nil {
		log.Println(err.Error())
		return err
	}
	return nil
}

func (a *App) Cancel(ctx context.Context, id string) error {
	if err := a.manager.Cancel(ctx, id); err != nil {
		log.Println(err.Error())
		return err
	}
	return nil
}

// Sync requests an immediate reconciliation pass.
func (a *App) Sync(ctx context.Context) error {
	a.rec.Kick()
	return nil
}
