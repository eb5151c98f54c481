package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/halfmoonlab/supportdesk/gate"
	"github.com/halfmoonlab/supportdesk/internal/pathutil"
)

func gateFromViper() *gate.Gate {
	threshold := viper.GetFloat64("gate.threshold")
	if threshold <= 0 {
		threshold = 100.0
	}
	return gate.New(threshold)
}

func auditSinkFromViper(log *slog.Logger) gate.AuditSink {
	if !viper.GetBool("audit.enabled") {
		return nil
	}

	path := strings.TrimSpace(viper.GetString("audit.jsonl_path"))
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			return nil
		}
		path = filepath.Join(home, ".supportdesk", "audit.jsonl")
	}
	path = pathutil.ExpandHomePath(path)

	sink, err := gate.NewJSONLAuditSink(path, viper.GetInt64("audit.rotate_max_bytes"))
	if err != nil {
		log.Warn("audit_sink_error", "error", err.Error())
		return nil
	}
	return sink
}

func redactorFromViper() *gate.Redactor {
	var patterns []gate.RegexPattern
	_ = viper.UnmarshalKey("redaction.patterns", &patterns)

	return gate.NewRedactor(gate.RedactionConfig{
		Enabled:  viper.GetBool("redaction.enabled"),
		Patterns: patterns,
	})
}
