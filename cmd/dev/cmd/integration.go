package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
)

// scenario is one spectral cli invocation against the simulated sensor.
// The command passes when it exits cleanly and its output contains expect.
type scenario struct {
	name   string
	args   []string
	expect string
}

// runner executes the spectral cli with args and returns its combined output.
type runner func(ctx context.Context, args []string) ([]byte, error)

func IntegrationTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "integration-test",
		Short: "Run the spectral cli end to end against the simulated sensor",
		RunE: func(cmd *cobra.Command, args []string) error {
			bin, err := cmd.Flags().GetString("binary")
			if err != nil {
				return fmt.Errorf("could not get binary flag: %w", err)
			}
			variant, err := cmd.Flags().GetString("variant")
			if err != nil {
				return fmt.Errorf("could not get variant flag: %w", err)
			}
			return runScenarios(cmd.Context(), cliRunner(bin), simScenarios(variant))
		},
	}
	cmd.Flags().String("binary", "", "prebuilt spectral binary (go run ./cmd/spectral when empty)")
	cmd.Flags().String("variant", "as7262", "simulated sensor variant")
	return cmd
}

func simScenarios(variant string) []scenario {
	sim := func(args ...string) []string {
		return append(args, "--adapter", "sim", "--variant", variant)
	}
	firstLabel := "violet 450nm"
	if variant == "as7263" {
		firstLabel = "R 610nm"
	}
	return []scenario{
		{name: "version", args: sim("color", "version"), expect: "0x3f"},
		{name: "init", args: sim("color", "init")},
		{name: "read", args: sim("color", "read"), expect: firstLabel},
		{name: "read illuminated", args: sim("color", "read", "--bulb", "--yaml"), expect: firstLabel + ":"},
		{name: "bulb", args: append(sim("color", "led", "--current", "25mA"), "bulb", "on")},
		{name: "blink", args: sim("color", "blink", "--for", "10ms")},
		{name: "register read", args: append(sim("color", "register", "read"), "0x01"), expect: "0x3f"},
	}
}

func cliRunner(bin string) runner {
	return func(ctx context.Context, args []string) ([]byte, error) {
		name := bin
		if name == "" {
			name = "go"
			args = append([]string{"run", "./cmd/spectral"}, args...)
		}
		return exec.CommandContext(ctx, name, args...).CombinedOutput()
	}
}

func runScenarios(ctx context.Context, run runner, scenarios []scenario) error {
	var failed []string
	for _, sc := range scenarios {
		out, err := run(ctx, sc.args)
		if err == nil && !strings.Contains(string(out), sc.expect) {
			err = fmt.Errorf("output does not contain %q", sc.expect)
		}
		if err != nil {
			slog.Error("scenario failed", "scenario", sc.name, "args", strings.Join(sc.args, " "), "error", err, "output", string(out))
			failed = append(failed, sc.name)
			continue
		}
		slog.Info("scenario passed", "scenario", sc.name)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d scenarios failed: %s", len(failed), len(scenarios), strings.Join(failed, ", "))
	}
	return nil
}
