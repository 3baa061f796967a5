// Package logx configures mpvnotify's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//   - A runtime-adjustable level (driven by the player's msg-level property)
//   - A rate-limited error path for repeated backend failures
package logx
