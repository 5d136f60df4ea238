// Command convert rewrites a telemetry dataset as Parquet. The input goes
// through the same loader and validation the server uses, so a file that
// converts cleanly will also load in the server.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/obsidianstack/regionstats/server/internal/logging"
	"github.com/obsidianstack/regionstats/server/internal/telemetry"
)

func main() {
	in := flag.String("in", "q-vercel-latency.json", "input dataset (.json or .parquet)")
	out := flag.String("out", "q-vercel-latency.parquet", "output Parquet file")
	flag.Parse()

	logging.Init(slog.LevelInfo, "text")

	ds, err := telemetry.Load(*in)
	if err != nil {
		slog.Error("load dataset", "path", *in, "err", err)
		os.Exit(1)
	}

	if err := telemetry.WriteParquet(*out, ds.Records()); err != nil {
		slog.Error("write parquet", "path", *out, "err", err)
		os.Exit(1)
	}

	slog.Info("dataset converted",
		"in", *in,
		"out", *out,
		"records", ds.Len(),
		"regions", len(ds.Regions()),
	)
}
