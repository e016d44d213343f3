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
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"zephterm/config"
	"zephterm/internal/serial"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List scans the system for serial ports and displays them.

Ports matching serial.exclude_patterns in the config file are hidden.

Example:
  zephterm list              # List all ports
  zephterm list --json       # Output as JSON
  zephterm list --details    # Show USB identifiers and serial numbers`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("json", false, "output in JSON format")
	listCmd.Flags().Bool("details", false, "show detailed port information")
}

func runList(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	details, _ := cmd.Flags().GetBool("details")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	scanner, err := serial.NewScanner(cfg.Serial.ExcludePatterns)
	if err != nil {
		return fmt.Errorf("invalid exclude pattern: %w", err)
	}

	ports, err := scanner.Scan()
	if err != nil {
		return fmt.Errorf("failed to scan ports: %w", err)
	}

	if len(ports) == 0 {
		if jsonOutput {
			fmt.Println("[]")
		} else {
			fmt.Println("No serial ports found.")
		}
		return nil
	}

	if jsonOutput {
		return printPortsJSON(ports, details)
	}

	return printPortsTable(ports, details)
}

func printPortsTable(ports []serial.PortInfo, details bool) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	if details {
		fmt.Fprintln(w, "PORT\tDESCRIPTION\tVID:PID\tPRODUCT\tSERIAL\tTYPE")
		fmt.Fprintln(w, "----\t-----------\t-------\t-------\t------\t----")
		for _, port := range ports {
			vidpid := ""
			if port.VID != "" || port.PID != "" {
				vidpid = fmt.Sprintf("%s:%s", port.VID, port.PID)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				port.Name,
				truncate(port.Description, 30),
				vidpid,
				truncate(port.Product, 20),
				truncate(port.SerialNumber, 15),
				port.PortType.String(),
			)
		}
	} else {
		fmt.Fprintln(w, "PORT\tDESCRIPTION\tTYPE")
		fmt.Fprintln(w, "----\t-----------\t----")
		for _, port := range ports {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				port.Name,
				truncate(port.Description, 40),
				port.PortType.String(),
			)
		}
	}

	return w.Flush()
}

func printPortsJSON(ports []serial.PortInfo, details bool) error {
	type portData struct {
		Name         string `json:"name"`
		Description  string `json:"description,omitempty"`
		Product      string `json:"product,omitempty"`
		SerialNumber string `json:"serial_number,omitempty"`
		VID          string `json:"vid,omitempty"`
		PID          string `json:"pid,omitempty"`
		PortType     string `json:"port_type"`
	}

	var data []portData
	for _, port := range ports {
		pd := portData{
			Name:        port.Name,
			Description: port.Description,
			PortType:    port.PortType.String(),
		}
		if details {
			pd.Product = port.Product
			pd.SerialNumber = port.SerialNumber
			pd.VID = port.VID
			pd.PID = port.PID
		}
		data = append(data, pd)
	}

	output, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(output))
	return nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
