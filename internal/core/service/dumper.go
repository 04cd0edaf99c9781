package service

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Dumper writes a gzip-compressed logical dump of the database to
// destPath. It is an interface so tests can substitute the pg_dump
// invocation.
type Dumper interface {
	Dump(ctx context.Context, databaseURL, destPath string) ([]string, error)
}

// PgDumper shells out to pg_dump and pipes its stdout straight through
// gzip, so no uncompressed copy of the dump ever touches disk.
type PgDumper struct{}

// Dump runs pg_dump against databaseURL. It returns the non-NOTICE
// stderr lines as warnings; a non-zero exit is an error.
func (PgDumper) Dump(ctx context.Context, databaseURL, destPath string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "pg_dump", "--no-password", databaseURL)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open pg_dump stdout: %w", err)
	}

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create dump file: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start pg_dump: %w", err)
	}

	_, copyErr := io.Copy(gz, stdout)
	waitErr := cmd.Wait()
	warnings := stderrWarnings(stderr.String())

	if closeErr := gz.Close(); closeErr != nil && copyErr == nil {
		copyErr = closeErr
	}

	if waitErr != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = waitErr.Error()
		}
		return warnings, fmt.Errorf("pg_dump failed: %s", detail)
	}
	if copyErr != nil {
		return warnings, fmt.Errorf("failed to write dump: %w", copyErr)
	}

	return warnings, nil
}

// stderrWarnings filters NOTICE chatter out of pg_dump stderr. Whatever
// remains is worth logging but does not fail the run on its own.
func stderrWarnings(stderr string) []string {
	var warnings []string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "NOTICE") {
			continue
		}
		warnings = append(warnings, line)
	}
	return warnings
}
