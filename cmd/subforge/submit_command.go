package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subforge/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var subtitleURL string
	var subtitleFile string
	var resolutions []string
	var soft bool

	cmd := &cobra.Command{
		Use:   "submit VIDEO_URL",
		Short: "Submit a video for subtitle processing and encoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if subtitleURL == "" && subtitleFile == "" {
				return fmt.Errorf("either --subtitle-url or --subtitle-file is required")
			}
			if subtitleURL != "" && subtitleFile != "" {
				return fmt.Errorf("--subtitle-url and --subtitle-file are mutually exclusive")
			}

			req := api.SubmitRequest{
				VideoURL:    args[0],
				SubtitleURL: subtitleURL,
				Resolutions: resolutions,
				Soft:        soft,
			}

			client := ctx.client()
			var (
				jobID string
				err   error
			)
			if subtitleFile != "" {
				jobID, err = client.SubmitWithFile(cmd.Context(), req, subtitleFile)
			} else {
				jobID, err = client.Submit(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s\n", jobID)
			return nil
		},
	}

	cmd.Flags().StringVar(&subtitleURL, "subtitle-url", "", "URL of the subtitle file")
	cmd.Flags().StringVar(&subtitleFile, "subtitle-file", "", "Local subtitle file to upload")
	cmd.Flags().StringSliceVar(&resolutions, "resolutions", nil, "Resolution labels to encode (default from config)")
	cmd.Flags().BoolVar(&soft, "soft", false, "Embed the subtitle as a toggleable track instead of burning it in")
	return cmd
}
