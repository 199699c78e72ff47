package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"math-video-api/internal/application/upload"
	"math-video-api/internal/config"
	"math-video-api/internal/infrastructure/youtube"
)

type uploadFlags struct {
	file          string
	title         string
	description   string
	category      string
	keywords      string
	privacy       string
	clientSecrets string
	tokenFile     string
	maxRetries    int
}

func runUpload(cmd *cobra.Command, flags *uploadFlags, defaults config.UploaderConfig) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaults.Timeout)
		defer cancel()
	}

	meta := youtube.Metadata{
		Title:         flags.title,
		Description:   flags.description,
		Tags:          youtube.ParseTags(flags.keywords),
		CategoryID:    flags.category,
		PrivacyStatus: flags.privacy,
	}

	// 文件与元数据先校验，避免无谓的授权流程
	session, err := youtube.NewSession(nil, defaults.Endpoint, flags.file, meta, defaults.ChunkSize)
	if err != nil {
		return err
	}

	client, err := youtube.NewAuthorizedClient(ctx, flags.clientSecrets, flags.tokenFile, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("authorize: %w", err)
	}
	session.WithClient(client)

	out := cmd.OutOrStdout()
	policy := upload.DefaultPolicy()
	policy.MaxRetries = flags.maxRetries
	policy.OnProgress = func(p upload.Progress) {
		fmt.Fprintf(out, "Uploaded %d of %d bytes\n", p.BytesSent, p.TotalBytes)
	}

	fmt.Fprintln(out, "Uploading file...")
	outcome, err := upload.Run(ctx, session, policy)
	if err != nil {
		return fmt.Errorf("upload failed after %d attempts: %w", outcome.Attempts, err)
	}

	fmt.Fprintf(out, "Video id '%s' was successfully uploaded.\n", outcome.ID)
	return nil
}
