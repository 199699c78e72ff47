// video-upload 把本地视频断点续传到视频平台。
//
// Usage:
//
//	video-upload --file=<path> --title=<title> [--description=<text>] [--category=22]
//	             [--keywords=a,b] [--privacy=public|private|unlisted]
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"math-video-api/internal/config"
	"math-video-api/pkg/logger"
)

// Version 版本信息，构建时注入
var Version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// 标准输出留给上传进度与结果
	logger.InitWithWriter(os.Stderr, cfg.Observability.Logging.Level, "text")

	if err := newRootCmd(cfg.Uploader).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(defaults config.UploaderConfig) *cobra.Command {
	flags := &uploadFlags{}
	cmd := &cobra.Command{
		Use:   "video-upload",
		Short: "Upload a rendered video with resumable, retrying chunked uploads",
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage: true,
		Version:      Version,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpload(cmd, flags, defaults)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.file, "file", "", "Video file to upload (required)")
	f.StringVar(&flags.title, "title", "Test Title", "Video title")
	f.StringVar(&flags.description, "description", "Test Description", "Video description")
	f.StringVar(&flags.category, "category", "22", "Numeric video category")
	f.StringVar(&flags.keywords, "keywords", "", "Video keywords, comma separated")
	f.StringVar(&flags.privacy, "privacy", "public", "Privacy status: public, private or unlisted")
	f.StringVar(&flags.clientSecrets, "client-secrets", defaults.ClientSecretsFile, "OAuth client secrets file")
	f.StringVar(&flags.tokenFile, "token-file", defaults.TokenFile, "Cached OAuth token file")
	f.IntVar(&flags.maxRetries, "max-retries", defaults.MaxRetries, "Give up after this many retriable errors")

	_ = cmd.MarkFlagRequired("file")
	return cmd
}
