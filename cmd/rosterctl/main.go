package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/teacher-dashboard-api/internal/client"
	"github.com/noah-isme/teacher-dashboard-api/pkg/config"
	"github.com/noah-isme/teacher-dashboard-api/pkg/logger"
	"github.com/noah-isme/teacher-dashboard-api/pkg/roster"
	"github.com/noah-isme/teacher-dashboard-api/pkg/storage"
)

const maxUploadBytes = 1 << 20

func main() {
	app := &cli.App{
		Name:  "rosterctl",
		Usage: "export, download and import student rosters",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: "http://localhost:8080/api/v1", EnvVars: []string{"ROSTERCTL_API"}, Usage: "API base URL"},
			&cli.StringFlag{Name: "email", EnvVars: []string{"ROSTERCTL_EMAIL"}, Required: true},
			&cli.StringFlag{Name: "password", EnvVars: []string{"ROSTERCTL_PASSWORD"}, Required: true},
			&cli.StringFlag{Name: "out", Value: ".", Usage: "directory downloads are saved to"},
			&cli.BoolFlag{Name: "force", Usage: "overwrite existing downloads"},
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "download the full roster",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Value: string(roster.FormatCSV), Usage: "csv or pdf"},
				},
				Action: exportAction,
			},
			{
				Name:   "sample",
				Usage:  "download the import template",
				Action: sampleAction,
			},
			{
				Name:      "import",
				Usage:     "upload a CSV roster",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "dry-run", Usage: "validate without saving"},
				},
				Action: importAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type session struct {
	api    *client.Client
	store  *storage.LocalStorage
	logger *zap.Logger
	force  bool
}

func connect(c *cli.Context) (*session, error) {
	logr, err := logger.New(&config.Config{
		Env: config.EnvDevelopment,
		Log: config.LogConfig{Level: c.String("log-level"), Format: "console"},
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	store, err := storage.NewLocalStorage(c.String("out"))
	if err != nil {
		return nil, err
	}

	api := client.New(c.String("api"), client.NewRefresher(client.Session{}), client.WithLogger(logr))
	if err := api.Login(c.Context, c.String("email"), c.String("password")); err != nil {
		return nil, err
	}
	return &session{api: api, store: store, logger: logr, force: c.Bool("force")}, nil
}

func (s *session) save(download *client.Download, fallback string) error {
	name := download.Name
	if name == "" {
		name = fallback
	}
	write := s.store.Create
	if s.force {
		write = s.store.Save
	}
	path, err := write(name, download.Content)
	if errors.Is(err, storage.ErrExists) {
		existing, _ := s.store.Path(name)
		return cli.Exit(fmt.Sprintf("%s already exists, rerun with --force to overwrite", existing), 1)
	}
	if err != nil {
		return err
	}
	s.logger.Info("saved", zap.String("path", path), zap.Int("bytes", len(download.Content)))
	return nil
}

func exportAction(c *cli.Context) error {
	format := roster.Format(strings.ToLower(c.String("format")))
	if format != roster.FormatCSV && format != roster.FormatPDF {
		return cli.Exit("format must be csv or pdf", 2)
	}
	s, err := connect(c)
	if err != nil {
		return err
	}
	defer s.logger.Sync() //nolint:errcheck

	download, err := s.api.Export(c.Context, format)
	if err != nil {
		return err
	}
	return s.save(download, "students_export."+string(format))
}

func sampleAction(c *cli.Context) error {
	s, err := connect(c)
	if err != nil {
		return err
	}
	defer s.logger.Sync() //nolint:errcheck

	download, err := s.api.Sample(c.Context)
	if err != nil {
		return err
	}
	return s.save(download, roster.SampleFilename)
}

func importAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("import expects exactly one FILE", 2)
	}
	path := c.Args().First()
	content, err := storage.ReadFile(path, maxUploadBytes)
	if err != nil {
		return err
	}
	s, err := connect(c)
	if err != nil {
		return err
	}
	defer s.logger.Sync() //nolint:errcheck

	report, err := s.api.Import(c.Context, filepath.Base(path), content, c.Bool("dry-run"))
	if report != nil {
		printReport(report)
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return cli.Exit(apiErr.Message, 1)
	}
	return err
}

func printReport(report *client.ImportReport) {
	verb := "imported"
	count := report.Created
	if report.DryRun {
		verb = "valid"
		count = len(report.Students)
	}
	fmt.Printf("%d students %s, %d rows rejected\n", count, verb, len(report.InvalidRows))
	for _, msg := range report.Errors {
		fmt.Println("  " + msg)
	}
}
