package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type ingestResult struct {
	File   string `json:"file"`
	FileID string `json:"fileId,omitempty"`
	Error  string `json:"error,omitempty"`
}

func newIngestCmd(c *cli) *cobra.Command {
	var parallel int

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Upload every PDF in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := pdfFiles(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no PDF files in %s", args[0])
			}

			api := c.api()
			results := make([]ingestResult, len(files))
			var mu sync.Mutex
			failed := 0

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(parallel)
			for i, path := range files {
				g.Go(func() error {
					res := ingestResult{File: filepath.Base(path)}
					up, err := uploadFile(ctx, api, path)
					if err != nil {
						c.log.Warn("upload failed", zap.String("file", path), zap.Error(err))
						res.Error = err.Error()
						mu.Lock()
						failed++
						mu.Unlock()
					} else {
						res.FileID = up.FileID
					}
					results[i] = res
					return nil
				})
			}
			_ = g.Wait()

			out := cmd.OutOrStdout()
			if c.jsonOutput() {
				if err := writeJSON(out, results); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					if r.Error != "" {
						fmt.Fprintf(out, "FAIL %s: %s\n", r.File, r.Error)
					} else {
						fmt.Fprintf(out, "OK   %s -> %s\n", r.File, r.FileID)
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(files))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&parallel, "parallel", "p", 4, "concurrent uploads")
	return cmd
}

func pdfFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
