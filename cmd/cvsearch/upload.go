package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"alfredoptarigan/cv-search/internal/client"
	"alfredoptarigan/cv-search/internal/models"
	"alfredoptarigan/cv-search/internal/services"
)

func newUploadCmd(c *cli) *cobra.Command {
	var inspect bool

	cmd := &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a CV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			out := cmd.OutOrStdout()

			if inspect {
				pages, err := services.NewPDFParserService().PageCount(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d page(s)\n", filepath.Base(path), pages)
			}

			res, err := uploadFile(cmd.Context(), c.api(), path)
			if err != nil {
				return err
			}

			if c.jsonOutput() {
				return writeJSON(out, res)
			}
			printUpload(out, res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&inspect, "inspect", false, "print the local page count before uploading")
	return cmd
}

// uploadFile sends path with a content type guessed from its extension, so
// non-PDF files are rejected before any request is made.
func uploadFile(ctx context.Context, api *client.CandidateAPI, path string) (*models.UploadResponse, error) {
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !client.IsPDF(contentType) {
		return nil, client.ErrNotPDF
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return api.UploadCV(ctx, client.Upload{
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Body:        f,
	})
}

func printUpload(w io.Writer, res *models.UploadResponse) {
	fmt.Fprintf(w, "uploaded: %s\n", orDash(res.FileID))
	if res.Message != "" {
		fmt.Fprintf(w, "message:  %s\n", res.Message)
	}
	if res.Pages > 0 {
		fmt.Fprintf(w, "pages:    %d\n", res.Pages)
	}
	if m := res.Metadata; m != nil {
		fmt.Fprintf(w, "name:     %s\n", orDash(m.Name))
		fmt.Fprintf(w, "email:    %s\n", orDash(m.Email))
		fmt.Fprintf(w, "phone:    %s\n", orDash(m.Phone))
		fmt.Fprintf(w, "skills:   %s\n", orDash(strings.Join(m.Skills, ", ")))
	}
}
