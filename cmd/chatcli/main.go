package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gwi.com/deepchat/internal/client"
)

var (
	logLevel  = "info"
	serverURL = "http://localhost:8080"
	token     = ""
)

var rootCmd = &cobra.Command{
	Use:   "chatcli",
	Short: "Terminal client for the deepchat server",
	Long: `chatcli talks to a deepchat server. Without a subcommand it opens the
interactive chat UI; the subcommands script single operations.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			log.WithError(err).Fatal("cannot parse log-level")
		}
		log.SetLevel(level)
		if token == "" {
			log.Warn("no token set, the server will treat requests as unauthorized")
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

func newClient() *client.Client {
	return client.New(serverURL, token)
}

func main() {
	formatter := new(log.TextFormatter)
	formatter.FullTimestamp = true
	log.SetFormatter(formatter)

	rootCmd.AddCommand(
		NewTUICommand(),
		NewListCommand(),
		NewCreateCommand(),
		NewRenameCommand(),
		NewDeleteCommand(),
		NewSendCommand(),
	)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"Log level (trace,debug,info,warn,error) (default info)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", serverURL, "Base URL of the deepchat server")
	rootCmd.PersistentFlags().StringVar(&token, "token", os.Getenv("DEEPCHAT_TOKEN"),
		"Bearer token (defaults to $DEEPCHAT_TOKEN)")

	err := rootCmd.Execute()
	if err != nil {
		log.WithError(err).Fatal("could not execute command")
	}
}
