package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/xerrors"

	cli "go.dedis.ch/mpchist/cmd"
)

// flags shared by the commands that start a party
type partyFlags struct {
	config    string
	id        int
	parties   string
	threshold uint64
	keyFile   string
	inputs    []string

	verbose bool
	debug   bool
}

func main() {
	command := &cobra.Command{
		Use:   "mpchist",
		Short: "Compute k-anonymous histograms between parties",
	}
	addRunCmd(command)
	addCliCmd(command)
	addKeygenCmd(command)

	err := command.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// addRunCmd computes one histogram per input and exits
func addRunCmd(command *cobra.Command) {
	var flags partyFlags

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Compute histograms and exit",
		Long:  "Compute one k-anonymous histogram per input with the other parties, print the results and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setLogLevel(flags)

			c, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			missing := c.Missing()
			if missing != "" {
				return xerrors.Errorf("missing setting: %s", missing)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return cli.Run(ctx, c, os.Stdout)
		},
	}

	addPartyFlags(runCmd, &flags)
	command.AddCommand(runCmd)
}

// addCliCmd starts a party with an interactive CLI
func addCliCmd(command *cobra.Command) {
	var flags partyFlags

	startCmd := &cobra.Command{
		Use:   "cli",
		Short: "Start a party with interactive CLI",
		Long:  "Start a party with interactive CLI, asking for the missing settings, and compute histograms on demand",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setLogLevel(flags)

			c, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			cli.StartCMD(c)
			return nil
		},
	}

	addPartyFlags(startCmd, &flags)
	command.AddCommand(startCmd)
}

// addKeygenCmd creates an identity key
func addKeygenCmd(command *cobra.Command) {
	var path string

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an identity key",
		Long:  "Generate an identity key and print its address, to be pinned by the other parties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := crypto.GenerateKey()
			if err != nil {
				return xerrors.Errorf("failed to generate key: %w", err)
			}

			err = crypto.SaveECDSA(path, key)
			if err != nil {
				return xerrors.Errorf("failed to save key: %w", err)
			}

			fmt.Println("Identity key saved to: ", path)
			fmt.Println("Identity: ", crypto.PubkeyToAddress(key.PublicKey).Hex())
			return nil
		},
	}

	keygenCmd.Flags().StringVarP(&path, "out", "o", "identity.key", "Where to store the key")

	command.AddCommand(keygenCmd)
}

// -----------------------------------------------------------------------------
// Helpers

func addPartyFlags(cmd *cobra.Command, flags *partyFlags) {
	cmd.Flags().StringVarP(&flags.config, "config", "c", "", "YAML configuration file")
	cmd.Flags().IntVarP(&flags.id, "id", "i", 0, "ID of the local party")
	cmd.Flags().StringVarP(&flags.parties, "parties", "p", "",
		"All parties in the form \"ID@IP:PORT;NextID@NextIP:NextPort;...\"")
	cmd.Flags().Uint64VarP(&flags.threshold, "kthreshold", "k", 5,
		"Bins with less or equal k counts are suppressed. k=0 only suppresses empty bins")
	cmd.Flags().StringVar(&flags.keyFile, "key", "", "Identity key file")
	cmd.Flags().StringSliceVar(&flags.inputs, "input", nil, "Record file, may be repeated")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Log the progress of the runs")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Log every protocol step")
}

// loadConfig reads the config file, if any, and overrides it with the flags
// that were set.
func loadConfig(cmd *cobra.Command, flags partyFlags) (*cli.Config, error) {
	c := cli.NewConfig()

	if flags.config != "" {
		var err error
		c, err = cli.ConfigFromYAML(flags.config)
		if err != nil {
			return nil, err
		}
	}

	if cmd.Flags().Changed("id") {
		c.ID = flags.id
	}
	if cmd.Flags().Changed("parties") {
		err := c.SetParties(flags.parties)
		if err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("kthreshold") {
		c.Threshold = flags.threshold
	}
	if cmd.Flags().Changed("key") {
		c.KeyFile = flags.keyFile
	}
	if cmd.Flags().Changed("input") {
		c.Inputs = flags.inputs
	}

	return c, nil
}

func setLogLevel(flags partyFlags) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch {
	case flags.debug:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case flags.verbose:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	}
}
