package main

import (
	"io"

	"github.com/rs/zerolog"

	"subsim-ctl/internal/catalog"
	"subsim-ctl/internal/config"
	"subsim-ctl/internal/registry"
	"subsim-ctl/internal/sink"
)

// historyWriters sets up the snapshot recorders enabled in cfg: a JSONL
// file and a GreptimeDB table, both tagged with server. The returned
// MultiWriter may be empty; its Close releases the file.
func historyWriters(cfg *config.Config, server string, logger zerolog.Logger) (*sink.MultiWriter, error) {
	mw := sink.NewMultiWriter()
	if cfg.History.File != "" {
		fw, err := sink.NewFileWriter(cfg.History.File, server)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("file", cfg.History.File).Str("session", fw.Session()).Msg("recording status history")
		mw.Add(fw)
	}
	if cfg.History.Greptime.Endpoint != "" {
		gw, err := sink.NewGreptimeDBWriter(cfg.History.Greptime, server, logger)
		if err != nil {
			_ = mw.Close()
			return nil, err
		}
		logger.Info().Str("endpoint", cfg.History.Greptime.Endpoint).Str("table", cfg.History.Greptime.Table).Msg("writing status history to GreptimeDB")
		mw.Add(gw)
	}
	return mw, nil
}

// displayWriter chooses the headless output: JSON lines or the rendered
// status text.
func displayWriter(out io.Writer, asJSON bool, cat *catalog.Catalog, views func() registry.View) sink.StatusWriter {
	if asJSON {
		return sink.NewJSONStdoutWriter(out)
	}
	return sink.NewStdoutWriter(out, cat, views)
}
