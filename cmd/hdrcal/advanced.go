package main

import (
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hdrtray/hdrcal/pkg/vcp"
)

func NewRegisterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "register",
		Short:   "Read or write a single VCP register",
		GroupID: gAdvanced,
		Long: `Read or write a single VCP register.

Registers are given by name (brightness, color-preset, red-gain, green-gain, blue-gain) or as
a hex code like 0x10.`,
	}

	var verify bool

	set := &cobra.Command{
		Use:   "set [register] [value]",
		Short: "Write a VCP register",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			r, err := vcp.ParseRegister(args[0])
			if err != nil {
				return err
			}
			v, err := strconv.ParseUint(args[1], 10, 16)
			if err != nil {
				return fmt.Errorf("invalid value: %v", err)
			}

			ret, err := apiClient.SetRegister(r, vcp.Value(v), verify)
			if err != nil {
				return fmt.Errorf("failed to set %s: %w", r, err)
			}
			if ret != "" {
				logrus.Infof("daemon responded: %s", ret)
			}

			logrus.Infof("successfully set %s to %d", r, v)
			return nil
		},
	}
	set.Flags().BoolVar(&verify, "verify", false, "read the value back and retry until it matches")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get [register]",
			Short: "Read a VCP register",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				r, err := vcp.ParseRegister(args[0])
				if err != nil {
					return err
				}

				v, err := apiClient.GetRegister(r)
				if err != nil {
					return fmt.Errorf("failed to get %s: %w", r, err)
				}

				cmd.Println(v)
				return nil
			},
		},
		set,
	)

	return cmd
}
