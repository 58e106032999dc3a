package cmd

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.followtheprocess.codes/cli"
	"go.followtheprocess.codes/httprun/internal/httprun"
	"go.followtheprocess.codes/test"
)

func TestSeconds(t *testing.T) {
	tests := []struct {
		name    string        // Name of the test case
		seconds float64       // Flag value in seconds
		want    time.Duration // Expected duration
	}{
		{name: "default", seconds: httprun.DefaultTimeout.Seconds(), want: 10 * time.Second},
		{name: "whole", seconds: 3, want: 3 * time.Second},
		{name: "fractional", seconds: 0.25, want: 250 * time.Millisecond},
		{name: "zero", seconds: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			test.Equal(t, seconds(tt.seconds), tt.want)
		})
	}
}

func TestRunTimeoutFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	dir := t.TempDir()
	file := filepath.Join(dir, "request.http")
	err := os.WriteFile(file, []byte("GET "+srv.URL+"\n"), 0o600)
	test.Ok(t, err)

	tests := []struct {
		name    string // Name of the test case
		timeout string // Value passed to --timeout
		wantErr bool   // Whether the command should fail
	}{
		{name: "seconds", timeout: "10"},
		{name: "fractional seconds", timeout: "2.5"},
		{name: "not a number", timeout: "soon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := t.TempDir()

			args := []string{
				"run", file,
				"--timeout", tt.timeout,
				"--vertical",
				"--output-dir", out,
				"--pid-file", filepath.Join(t.TempDir(), "httprun.pid"),
			}

			command, err := Build(cli.OverrideArgs(args), cli.Stdout(io.Discard), cli.Stderr(io.Discard))
			test.Ok(t, err)

			err = command.Execute()
			test.WantErr(t, err, tt.wantErr)

			if !tt.wantErr {
				_, err := os.Stat(filepath.Join(out, httprun.ResponseFile))
				test.Ok(t, err, test.Context("response was not written"))
			}
		})
	}
}
