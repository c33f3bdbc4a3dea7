package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/daemon"
)

type statusData struct {
	status *daemon.Status
	config *calibration.Snapshot
}

// fetchStatusData gathers all data required for the status command from the daemon.
func fetchStatusData() (*statusData, error) {
	st, err := apiClient.GetStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}

	conf, err := apiClient.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get config: %w", err)
	}

	return &statusData{
		status: st,
		config: conf,
	}, nil
}

func NewStatusCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "status",
		GroupID: gBasic,
		Short:   "Get the current status of hdrcal",
		Long:    `Get hdrcal status, the last run, and the configured profiles.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := fetchStatusData()
			if err != nil {
				return err
			}

			if asJSON {
				b, err := json.MarshalIndent(data.status, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(b))
				return nil
			}

			st := data.status

			cmd.Println(bold("Daemon:"))
			cmd.Printf("  Display: %s\n", bold("%d", st.Display))
			cmd.Printf("  Mode: %s\n", bold("%s", st.Mode))
			cmd.Printf("  Color management: %s\n", bool2Text(st.ColorManagement))
			cmd.Printf("  Tools available: %s\n", bool2Text(st.ToolsAvailable))
			if st.Mock {
				cmd.Printf("  Display: %s\n", color.YellowString("mock (no DDC/CI writes)"))
			}
			if st.ReapplyCron != "" {
				cmd.Printf("  Scheduled reapply: %s\n", bold("%s", st.ReapplyCron))
				if st.NextReapply != nil {
					cmd.Printf("    Next run: %s\n", st.NextReapply.Local().Format(time.DateTime))
				}
			}

			cmd.Println()

			cmd.Println(bold("Last run:"))
			if r := st.LastRun; r != nil {
				cmd.Printf("  %s %s: %s\n", r.Kind, r.Mode, result2Text(r))
				cmd.Printf("    Started: %s, took %s\n", r.StartedAt.Local().Format(time.DateTime), r.Duration.Round(time.Millisecond))
				if r.Reason != "" {
					cmd.Printf("    Reason: %s\n", r.Reason)
				}
				if r.Error != "" {
					cmd.Printf("    Error: %s\n", color.RedString(r.Error))
				}
			} else {
				cmd.Println("  none since the daemon started")
			}

			cmd.Println()

			conf := data.config
			cmd.Println(bold("Profiles:"))
			printProfile(cmd, "SDR", conf.SDR)
			printProfile(cmd, "HDR", conf.HDR)
			cmd.Printf("  Allow color preset change before HDR: %s\n", bool2Text(conf.ColorPresetChange))
			cmd.Printf("  Write attempts: %s\n", bold("%d", conf.Retry.MaxAttempts))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the daemon status as JSON")

	return cmd
}

func NewToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "tools",
		GroupID: gAdvanced,
		Short:   "Show where the daemon found its external tools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := apiClient.GetTools()
			if err != nil {
				return fmt.Errorf("failed to get tools: %w", err)
			}
			cmd.Printf("  dispwin: %s\n", info.ProfileLoader)
			cmd.Printf("  winddcutil: %s\n", info.VCPTool)
			cmd.Printf("  Available: %s\n", bool2Text(info.Available))
			return nil
		},
	}
}

func printProfile(cmd *cobra.Command, name string, p calibration.Profile) {
	cmd.Printf("  %s: brightness %s, gains %s, preset %s\n",
		name,
		bold("%d", p.Brightness),
		bold("%d/%d/%d", p.RedGain, p.GreenGain, p.BlueGain),
		bold("%d", p.ColorPreset))
	if p.ProfileFile != "" {
		cmd.Printf("    Profile file: %s\n", p.ProfileFile)
	}
}

func result2Text(r *calibration.Result) string {
	if r.OK {
		return color.New(color.Bold, color.FgGreen).Sprint("ok")
	}
	return color.New(color.Bold, color.FgRed).Sprint("failed")
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
