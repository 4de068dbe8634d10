// Package main implements artifact-reaper, which removes stale development
// artifacts that never made it into a release repository.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/taigrr/artifact-reaper/internal/classify"
	"github.com/taigrr/artifact-reaper/internal/config"
	"github.com/taigrr/artifact-reaper/internal/report"
)

func main() {
	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version),
		fang.WithoutCompletions(),
		fang.WithoutManpage(),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "artifact-reaper",
		Short: "Remove stale, unreleased artifacts from a development repository",
		Long: `artifact-reaper walks a development repository and its release
repository, and lists every development file that was never released
and is older than the retention threshold. Nothing is deleted unless
--enforce is given.`,
		Example: `artifact-reaper run --base-url http://artifactory:8081/artifactory --dev-repo npm-dev --release-repo npm-release
artifact-reaper classify --dev-repo npm-dev --release-repo npm-release --max-days 60
artifact-reaper delete deleters.txt --enforce -u admin -p secret`,
		SilenceUsage: true,
	}
	addConfigFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Scan, classify, and process the delete list",
			Args:  cobra.NoArgs,
			RunE:  runAll,
		},
		&cobra.Command{
			Use:   "scan",
			Short: "Walk the repositories and save their catalogs",
			Args:  cobra.NoArgs,
			RunE:  runScan,
		},
		&cobra.Command{
			Use:   "classify",
			Short: "Classify saved catalogs and write the keep, delete and skip lists",
			Args:  cobra.NoArgs,
			RunE:  runClassify,
		},
		&cobra.Command{
			Use:   "delete [list-file]",
			Short: "Process a delete list (dry run unless --enforce)",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runDelete,
		},
		&cobra.Command{
			Use:   "mcp",
			Short: "Serve classification tools over MCP on stdio",
			Args:  cobra.NoArgs,
			RunE:  runServer,
		},
	)
	return root
}

func addConfigFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "YAML configuration file")
	fs.String("env-file", "", "dotenv file to load (default .env when present)")

	fs.String("base-url", "", "repository server URL, e.g. http://host:8081/artifactory")
	fs.String("source", "", "read from local:<dir> instead of the server")
	fs.String("dev-repo", "", "development repository to clean")
	fs.String("release-repo", "", "release repository (empty for single-repository mode)")
	fs.IntP("max-days", "d", 30, "delete files older than this many days")
	fs.StringSlice("skip-folders", config.DefaultSkipFolders, "folder exclusion rules")
	fs.StringSliceP("skip", "S", nil, "folder rules added to --skip-folders")
	fs.StringSlice("skip-files", config.DefaultSkipFiles, "file name exclusion rules")
	fs.IntP("max-items", "m", 0, "stop after this many items (0 for no limit)")
	fs.String("timestamp-field", "", "created or lastModified (default created)")
	fs.String("timestamp-format", "artifactory", "artifactory or os")
	fs.String("release-match", "exact", "exact or substring")
	fs.String("today", "", "reference date YYYY-MM-DD (default today in UTC)")

	fs.BoolP("enforce", "D", false, "actually delete files")
	fs.BoolP("interactive", "i", false, "confirm each deletion")
	fs.BoolP("delete-one", "o", false, "stop after the first successful deletion")
	fs.StringP("user", "u", "", "repository user")
	fs.StringP("password", "p", "", "repository password")

	fs.String("output-dir", ".", "directory for catalogs, lists and summary")
	fs.String("catalog-store", config.StoreFile, "file or s3")
	fs.String("s3-bucket", "", "bucket for the s3 catalog store")
	fs.String("s3-endpoint", "", "custom S3 endpoint")
	fs.String("s3-prefix", "", "key prefix for the s3 catalog store")

	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("log-format", "console", "console or json")
	fs.String("log-file", "", "also write the log to this file")
	fs.BoolP("verbose", "v", false, "shorthand for --log-level debug")
	fs.String("metrics-textfile", "", "write run metrics to this textfile")
	fs.String("metrics-pushgateway", "", "push run metrics to this gateway")
	fs.Duration("http-timeout", 30*time.Second, "per-request timeout")
	fs.Int("http-retries", 3, "retries for failed listings")
}

func setup(cmd *cobra.Command) (*app, error) {
	configFile, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := config.Load(config.Options{
		ConfigFile: configFile,
		EnvFile:    envFile,
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg)
}

func runAll(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	scan, err := a.scan(cmd.Context())
	if err != nil {
		return err
	}
	res, err := a.classify(scan)
	if err != nil {
		return err
	}

	if err := scan.deletable(); err != nil {
		return err
	}

	sum, err := a.execute(cmd.Context(), classify.Paths(res.Delete))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "keep %d, delete %d, skip %d; %s\n",
		len(res.Keep), len(res.Delete), len(res.Skip)+len(scan.skipped), describe(sum))
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	scan, err := a.scan(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d development and %d release files cataloged, %d skipped\n",
		len(scan.dev), len(scan.release), len(scan.skipped))
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	scan, err := a.load(cmd.Context())
	if err != nil {
		return err
	}
	res, err := a.classify(scan)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "keep %d, delete %d, skip %d\n", len(res.Keep), len(res.Delete), len(res.Skip))
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	listFile := a.writer.Path(report.DeleteFile)
	if len(args) > 0 {
		listFile = filepath.Clean(args[0])
	}
	keys, err := report.ReadListFile(listFile)
	if err != nil {
		return err
	}
	a.logger.Info("delete list read", zap.String("file", listFile), zap.Int("items", len(keys)))

	sum, err := a.execute(cmd.Context(), keys)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), describe(sum))
	return nil
}
