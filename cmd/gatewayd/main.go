/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var logger = logging.NewLogger("arcgateway")

// Flags
const (
	configFlag        = "config"
	configDescription = "The directory containing gateway.yaml, or the path of the config file"
	defaultConfig     = ""

	loggingLevelFlag        = "logging-level"
	loggingLevelDescription = "Logging level - ERROR, WARN, INFO, DEBUG. Overrides logging.level"
	defaultLoggingLevel     = ""
)

func newGatewayCmd() *cobra.Command {
	v := viper.New()

	mainCmd := &cobra.Command{
		Use:   "gatewayd",
		Short: "AR contents identity and transaction gateway",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.HelpFunc()(cmd, args)
		},
	}

	flags := mainCmd.PersistentFlags()
	initFlags(flags, v)

	mainCmd.AddCommand(newStartCmd(v), newVersionCmd())

	return mainCmd
}

func initFlags(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String(configFlag, defaultConfig, configDescription)
	flags.String(loggingLevelFlag, defaultLoggingLevel, loggingLevelDescription)

	for _, name := range []string{configFlag, loggingLevelFlag} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			logger.Warnf("Failed to bind flag [%s]: %s", name, err)
		}
	}
}

func main() {
	if newGatewayCmd().Execute() != nil {
		os.Exit(1)
	}
}
