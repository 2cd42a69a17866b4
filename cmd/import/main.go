package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go-netmap/internal/config"
	"go-netmap/internal/db"
	"go-netmap/internal/importer"
	"go-netmap/internal/logging"
	"go-netmap/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("netmap-import", pflag.ExitOnError)
	flags.String("db-driver", "sqlite", "database driver (sqlite or postgres)")
	flags.String("db-path", "/tmp/netmap.db", "sqlite database file")
	flags.String("db-dsn", "", "postgres connection URL")
	flags.String("log-level", "info", "log level")

	delimiter := flags.String("delimiter", ";", "CSV field delimiter")
	region := flags.String("region", "Imported", "region for sites without one")
	city := flags.String("city", "Unknown", "city for sites without one")
	lat := flags.Float64("lat", 0, "latitude for new sites")
	lng := flags.Float64("lng", 0, "longitude for new sites")
	routerModel := flags.String("router-model", "Unknown", "model recorded for new routers")
	switchModel := flags.String("switch-model", "Unknown", "model recorded for new switches")
	apModel := flags.String("ap-model", "Unknown", "model recorded for new access points")
	sectioned := flags.Bool("sectioned", false, "file lists access points under site header rows")
	aliases := flags.StringToString("alias", nil, "header label to site name for sectioned files, e.g. Airport=09-KRG-OWF-Airport")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: netmap-import [flags] <file.csv|file.xlsx>\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(2)
	}
	path := flags.Arg(0)

	cfg, err := config.Load(flags)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	logging.Configure(cfg.LogLevel, cfg.LogFormat)

	conn, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("database unavailable")
	}
	defer db.Close(conn)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	st := store.New(conn)
	defaults := importer.Defaults{
		Region:      *region,
		City:        *city,
		Lat:         *lat,
		Lng:         *lng,
		RouterModel: *routerModel,
		SwitchModel: *switchModel,
		APModel:     *apModel,
	}

	var res importer.Result
	if *sectioned {
		rows, rerr := readSectionRows(path, *delimiter)
		if rerr != nil {
			log.Fatal().Err(rerr).Str("file", path).Msg("cannot read import file")
		}
		log.Info().Str("file", path).Int("rows", len(rows)).Msg("sectioned import file parsed")
		res, err = importer.ImportSections(ctx, st, rows, importer.SectionState{Aliases: *aliases}, defaults)
	} else {
		rows, rerr := readRows(path, *delimiter)
		if rerr != nil {
			log.Fatal().Err(rerr).Str("file", path).Msg("cannot read import file")
		}
		log.Info().Str("file", path).Int("rows", len(rows)).Msg("import file parsed")
		res, err = importer.Import(ctx, st, rows, defaults)
	}
	if err != nil {
		log.Error().Err(err).Msg("import interrupted")
	}

	log.Info().
		Int("rows", res.Rows).
		Int("sitesCreated", res.SitesCreated).
		Int("switchesCreated", res.SwitchesCreated).
		Int("apsCreated", res.APsCreated).
		Int("apsSkipped", res.APsSkipped).
		Int("sectionsUnmatched", res.SectionsUnmatched).
		Int("errors", len(res.Errors)).
		Msg("import finished")

	if err != nil || len(res.Errors) > 0 {
		os.Exit(1)
	}
}

func isXLSX(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".xlsx")
}

func comma(delimiter string) rune {
	if delimiter == "" {
		return ';'
	}
	return []rune(delimiter)[0]
}

func readRows(path, delimiter string) ([]importer.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if isXLSX(path) {
		return importer.ReadXLSX(f)
	}
	return importer.ReadCSV(f, comma(delimiter))
}

func readSectionRows(path, delimiter string) ([]importer.SectionRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if isXLSX(path) {
		return importer.ReadSectionXLSX(f)
	}
	return importer.ReadSectionCSV(f, comma(delimiter))
}
