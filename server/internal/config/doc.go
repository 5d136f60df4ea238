// Package config loads the server configuration from the `server:` section
// of config.yaml.
//
// Config fields:
//   - HTTPPort         — port for the query API (default 8080)
//   - DataPath         — telemetry dataset, .json or .parquet (default q-vercel-latency.json)
//   - MaxBodyBytes     — request body limit (default 1 MiB)
//   - ShutdownTimeout  — graceful shutdown bound (default 10s)
//   - CORS             — allowed origins (default "*") and credentials flag
//   - Log.Level        — debug | info | warn | error (default info, hot-reloadable)
//   - Log.Format       — json | text (default json)
//
// Load(path) applies defaults before unmarshalling, then validates.
// Watch(ctx, path, fn) re-runs Load whenever the file changes.
package config
