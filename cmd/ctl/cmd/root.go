package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jpfielding/jpegs/pkg/logging"
	"github.com/spf13/cobra"
)

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	var logFile io.Closer
	cmd := &cobra.Command{
		Use:   "jlsctl",
		Short: "a CLI to encode, decode and inspect JPEG-LS images",
		Long:  "jlsctl converts images to and from JPEG-LS (ISO/IEC 14495-1) and inspects JPEG-LS streams and DICOM pixel data",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logLevel, _ := cmd.Flags().GetString("log-level")
			logJSON, _ := cmd.Flags().GetBool("log-json")
			logPath, _ := cmd.Flags().GetString("log-file")

			var level slog.Level
			levelErr := level.UnmarshalText([]byte(strings.ToUpper(logLevel)))
			if levelErr != nil {
				level = slog.LevelInfo
			}
			var w io.Writer = os.Stderr
			if logPath != "" {
				maxSize, _ := cmd.Flags().GetInt("log-max-size")
				f := logging.RotatingFile(logPath, maxSize, 3)
				logFile, w = f, f
			}
			slog.SetDefault(logging.Logger(w, logJSON, level))
			if levelErr != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", levelErr)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFile != nil {
				logFile.Close()
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd.OutOrStdout(), cmd, 0)
		},
		SilenceUsage: true,
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewEncodeCmd(ctx),
		NewDecodeCmd(ctx),
		NewInfoCmd(ctx),
		NewDicomCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.Bool("log-json", false, "Log as JSON instead of text")
	pf.String("log-file", "", "Log to a rotating file instead of stderr")
	pf.Int("log-max-size", 10, "Size in megabytes before the log file rotates")
	return cmd
}

func printCommandTree(w io.Writer, cmd *cobra.Command, indent int) {
	fmt.Fprintln(w, strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(w, subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
	return cmd
}
