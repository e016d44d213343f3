package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zephterm/config"
)

func TestConnectRequiresPort(t *testing.T) {
	resetViper()

	_, err := execute("connect")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no serial port given")
}

func TestConnectRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "unsupported baud rate",
			args: []string{"connect", "/dev/ttyUSB0", "--baud", "1234", "--parity", "none", "--line-ending", "crlf"},
		},
		{
			name: "invalid parity",
			args: []string{"connect", "/dev/ttyUSB0", "--baud", "115200", "--parity", "sideways", "--line-ending", "crlf"},
		},
		{
			name: "invalid line ending",
			args: []string{"connect", "/dev/ttyUSB0", "--baud", "115200", "--parity", "none", "--line-ending", "vertical-tab"},
		},
		{
			name: "invalid data bits",
			args: []string{"connect", "/dev/ttyUSB0", "--baud", "115200", "--parity", "none", "--line-ending", "crlf", "--data-bits", "9"},
		},
		{
			name: "too many arguments",
			args: []string{"connect", "/dev/ttyUSB0", "/dev/ttyUSB1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper()

			_, err := execute(tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestConnectRejectsInvalidLogLevel(t *testing.T) {
	resetViper()
	viper.Set("logging.level", "chatty")

	_, err := execute("connect", "/dev/ttyUSB0", "--baud", "115200", "--parity", "none", "--line-ending", "crlf")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestApplySerialFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "connect"}
	cmd.Flags().IntP("baud", "b", 0, "")
	cmd.Flags().Int("data-bits", 0, "")
	cmd.Flags().Int("stop-bits", 0, "")
	cmd.Flags().String("parity", "", "")
	cmd.Flags().String("line-ending", "", "")
	cmd.Flags().Int("read-timeout", 0, "")

	require.NoError(t, cmd.Flags().Set("baud", "9600"))
	require.NoError(t, cmd.Flags().Set("parity", "even"))
	require.NoError(t, cmd.Flags().Set("line-ending", "lf"))

	sc := config.DefaultConfig().Serial
	applySerialFlags(cmd, &sc)

	assert.Equal(t, 9600, sc.BaudRate)
	assert.Equal(t, "even", sc.Parity)
	assert.Equal(t, "lf", sc.LineEnding)

	// Flags left unset keep their configured values.
	assert.Equal(t, 8, sc.DataBits)
	assert.Equal(t, 1, sc.StopBits)
	assert.Equal(t, 100, sc.ReadTimeoutMs)
}
