package main

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func uploadCmd(opts *globalOptions) *cobra.Command {
	var templateID, file string
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a template image (admin)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}
			contentType := http.DetectContentType(data)
			if !strings.HasPrefix(contentType, "image/") {
				return fmt.Errorf("%s is %s, not an image", file, contentType)
			}
			dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)

			client, err := opts.client()
			if err != nil {
				return err
			}
			url, err := client.UploadTemplateImage(cmd.Context(), templateID, filepath.Base(file), dataURL)
			if err != nil {
				return err
			}
			opts.logger.Info("template image uploaded", zap.String("template_id", templateID), zap.Int("bytes", len(data)))
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
	cmd.Flags().StringVar(&templateID, "template", "", "template id")
	cmd.Flags().StringVar(&file, "file", "", "image file")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
