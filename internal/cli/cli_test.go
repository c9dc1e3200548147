package cli

import (
	"io"
	"testing"

	"github.com/spf13/cobra"

	"github.com/matzehuels/npym/pkg/errors"
	"github.com/matzehuels/npym/pkg/wheel"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	for _, name := range []string{"bridge", "resolve", "range", "serve", "cache", "completion"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		args     []string
		wantName string
		wantExpr string
		wantErr  bool
	}{
		{args: []string{"left-pad"}, wantName: "left-pad"},
		{args: []string{"left-pad", "^1.0.0"}, wantName: "left-pad", wantExpr: "^1.0.0"},
		{args: []string{"@types/node", "20.x"}, wantName: "@types/node", wantExpr: "20.x"},
		{args: []string{"Not Valid"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			name, expr, err := parseTarget(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTarget(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if name.String() != tt.wantName || expr != tt.wantExpr {
				t.Errorf("parseTarget(%v) = %q, %q; want %q, %q", tt.args, name, expr, tt.wantName, tt.wantExpr)
			}
		})
	}
}

func flagCommand(t *testing.T, args ...string) (*cobra.Command, *bridgeFlags) {
	t.Helper()
	var f bridgeFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd, true)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("ParseFlags(%v): %v", args, err)
	}
	return cmd, &f
}

func TestBridgeOptionsDefaultsFromConfig(t *testing.T) {
	c := New(io.Discard, LogInfo)
	cmd, f := flagCommand(t)

	opts, err := c.bridgeOptions(cmd, *f)
	if err != nil {
		t.Fatalf("bridgeOptions: %v", err)
	}
	cfg := c.settings()
	if opts.Dest != cfg.Destination || opts.Workers != cfg.Workers || opts.EmitWorkers != cfg.EmitWorkers {
		t.Errorf("opts = %+v, want config values", opts)
	}
	if opts.Wheel.Pin != wheel.PinExact {
		t.Errorf("Pin = %q, want %q", opts.Wheel.Pin, wheel.PinExact)
	}
}

func TestBridgeOptionsFlagsOverride(t *testing.T) {
	c := New(io.Discard, LogInfo)
	cmd, f := flagCommand(t, "-o", "wheels", "--optional", "--workers", "3", "--emit-workers", "2", "--pin", "range", "--platform-tag", "py3-none-linux_x86_64")

	opts, err := c.bridgeOptions(cmd, *f)
	if err != nil {
		t.Fatalf("bridgeOptions: %v", err)
	}
	if opts.Dest != "wheels" || !opts.IncludeOptional || opts.Workers != 3 || opts.EmitWorkers != 2 {
		t.Errorf("opts = %+v, want flag values", opts)
	}
	if opts.Wheel.Pin != wheel.PinRange || opts.Wheel.PlatformTag != "py3-none-linux_x86_64" {
		t.Errorf("wheel opts = %+v, want flag values", opts.Wheel)
	}
}

func TestBridgeOptionsBadPin(t *testing.T) {
	c := New(io.Discard, LogInfo)
	cmd, f := flagCommand(t, "--pin", "loose")

	_, err := c.bridgeOptions(cmd, *f)
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bridgeOptions(--pin loose) error = %v, want INVALID_INPUT", err)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestDisplayAddr(t *testing.T) {
	if got := displayAddr(":8080"); got != "localhost:8080" {
		t.Errorf("displayAddr(:8080) = %q", got)
	}
	if got := displayAddr("0.0.0.0:9000"); got != "0.0.0.0:9000" {
		t.Errorf("displayAddr(0.0.0.0:9000) = %q", got)
	}
}
