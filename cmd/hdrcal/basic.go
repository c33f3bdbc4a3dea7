package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hdrtray/hdrcal/pkg/calibration"
	"github.com/hdrtray/hdrcal/pkg/version"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("%s %s\n", version.Version, version.GitCommit)
		},
	}
}

func NewApplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "apply [sdr|hdr]",
		Short:     "Apply the calibration for a mode",
		GroupID:   gBasic,
		ValidArgs: []string{string(calibration.ModeSDR), string(calibration.ModeHDR)},
		Long: `Apply the calibration for a mode.

Waits for the display to settle, loads the ICC profile for the mode, and writes
brightness and RGB gains. In SDR mode the color preset is also switched to the
configured one and watched until it stops bouncing.

The mode is remembered and used by scheduled reapplies.`,
		RunE: func(_ *cobra.Command, args []string) error {
			mode, err := parseModeArg(args)
			if err != nil {
				return err
			}

			res, err := apiClient.Apply(mode)
			if err != nil {
				return fmt.Errorf("failed to apply %s: %w", mode, err)
			}

			return reportResult(res, fmt.Sprintf("applying %s calibration", mode))
		},
	}
}

func NewReapplyCommand() *cobra.Command {
	var (
		force  bool
		reason string
	)

	cmd := &cobra.Command{
		Use:     "reapply [sdr|hdr]",
		Short:   "Reapply the calibration for a mode with verification",
		GroupID: gBasic,
		Long: `Reapply the calibration for a mode with verification.

Every register is written and read back until it matches. Unless --force is
given, nothing is written when the display already reports the target values.`,
		RunE: func(_ *cobra.Command, args []string) error {
			mode, err := parseModeArg(args)
			if err != nil {
				return err
			}
			r, err := calibration.ParseReapplyReason(reason)
			if err != nil {
				return err
			}

			res, err := apiClient.Reapply(mode, force, r)
			if err != nil {
				return fmt.Errorf("failed to reapply %s: %w", mode, err)
			}

			return reportResult(res, fmt.Sprintf("reapplying %s calibration", mode))
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&force, "force", "f", false, "write even if the display already matches")
	f.StringVar(&reason, "reason", "", "why the reapply runs (display-change, display-power-on, system-resume, manual, scheduled)")

	return cmd
}

func NewPrepareHDRCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "prepare-hdr",
		Short:   "Switch the color preset before entering HDR",
		GroupID: gBasic,
		Long: `Switch the color preset before entering HDR.

Does nothing unless colorPresetChange is enabled in the config.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			res, err := apiClient.PrepareHDR()
			if err != nil {
				return fmt.Errorf("failed to prepare HDR: %w", err)
			}
			return reportResult(res, "preparing HDR")
		},
	}
}
