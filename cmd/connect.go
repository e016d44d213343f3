/*
Copyright 2024 ZephTerm Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"zephterm/config"
	"zephterm/internal/console"
	"zephterm/internal/serial"
	"zephterm/internal/tui"
)

var connectCmd = &cobra.Command{
	Use:   "connect [PORT]",
	Short: "Open a terminal session on a serial port",
	Long: `Connect opens a serial port and starts an interactive terminal
session. Typed lines are sent to the device and its output is shown as a
timestamped log. Press Ctrl+T to toggle the connection and Ctrl+Q to quit.

With --plain the session runs without the interactive screen and simply
prints log entries to stdout until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().IntP("baud", "b", 0, "baud rate (9600, 19200, 38400, 57600, 115200)")
	connectCmd.Flags().Int("data-bits", 0, "data bits (5-8)")
	connectCmd.Flags().Int("stop-bits", 0, "stop bits (1 or 2)")
	connectCmd.Flags().String("parity", "", "parity: none, even, odd")
	connectCmd.Flags().String("line-ending", "", "line ending sent after commands: lf, crlf, cr")
	connectCmd.Flags().Int("read-timeout", 0, "read timeout in milliseconds")
	connectCmd.Flags().Bool("plain", false, "print log entries to stdout instead of the interactive screen")
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if len(args) > 0 {
		cfg.Serial.Port = args[0]
	}
	applySerialFlags(cmd, &cfg.Serial)

	if cfg.Serial.Port == "" {
		return errors.New("no serial port given (pass PORT, set serial.port in the config file, or run 'zephterm list')")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	pc, err := cfg.Serial.ToPortConfig()
	if err != nil {
		return err
	}
	if err := pc.Validate(); err != nil {
		return err
	}

	plain, _ := cmd.Flags().GetBool("plain")
	logger := newLogger(cfg.Logging, !plain)
	mgr := serial.NewManager(nil, logger)

	if plain {
		return runPlain(mgr, pc)
	}

	ui := tui.New(mgr, pc, cfg.Terminal.Scrollback)
	return ui.Run()
}

// applySerialFlags folds explicitly set connect flags over the loaded
// configuration. Unset flags leave the configured values alone.
func applySerialFlags(cmd *cobra.Command, sc *config.SerialConfig) {
	if cmd.Flags().Changed("baud") {
		sc.BaudRate, _ = cmd.Flags().GetInt("baud")
	}
	if cmd.Flags().Changed("data-bits") {
		sc.DataBits, _ = cmd.Flags().GetInt("data-bits")
	}
	if cmd.Flags().Changed("stop-bits") {
		sc.StopBits, _ = cmd.Flags().GetInt("stop-bits")
	}
	if cmd.Flags().Changed("parity") {
		sc.Parity, _ = cmd.Flags().GetString("parity")
	}
	if cmd.Flags().Changed("line-ending") {
		sc.LineEnding, _ = cmd.Flags().GetString("line-ending")
	}
	if cmd.Flags().Changed("read-timeout") {
		sc.ReadTimeoutMs, _ = cmd.Flags().GetInt("read-timeout")
	}
}

func runPlain(mgr *serial.Manager, pc serial.PortConfig) error {
	if err := mgr.Connect(pc); err != nil {
		return err
	}
	defer mgr.Disconnect()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := console.NewPrinter(os.Stdout)
	if err := p.Follow(ctx, mgr.Events()); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
