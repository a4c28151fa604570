package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"go.dedis.ch/mpchist/peer"
	"go.dedis.ch/mpchist/peer/impl"
)

// -----------------------------------------------------------------------------
// Party CMD Prompt

var prompt = &survey.Select{
	Message: "What do you want to do ?",
	Options: actionOpts,
}

var actionOpts = []string{
	"🧮 Compute histogram",
	"🍃 Exit",
}

// -----------------------------------------------------------------------------
// Start CMD

// StartCMD asks for the settings missing from the configuration, then lets
// the user compute histograms until they exit.
func StartCMD(c *Config) {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
		exitParty()
	}()

	err := askSettings(c)
	if err != nil {
		fmt.Println(err)
		return
	}

	conf, err := c.PeerConfiguration()
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Println("##########################################")
	fmt.Println("######      Starting a MPC party    ######")
	fmt.Println("##########################################")
	fmt.Println("Party id: ", c.ID)
	fmt.Println("Parties: ", len(conf.Parties))
	fmt.Println("Threshold: ", c.Threshold)
	fmt.Println()

	node := impl.NewPeer(conf)

	var action string
	for {
		err := survey.AskOne(prompt, &action)
		if err != nil {
			fmt.Println(err)
			return
		}

		if action == actionOpts[1] {
			exitParty()
		}

		err = computeHistogram(ctx, c, node, len(conf.Parties))
		if err != nil {
			fmt.Println("err:", err)
		}
	}
}

// -----------------------------------------------------------------------------
// Compute

func computeHistogram(ctx context.Context, c *Config, node peer.Histogram, parties int) error {
	input := ""
	if len(c.Inputs) > 0 {
		input = c.Inputs[0]
	}

	err := survey.AskOne(&survey.Input{
		Message: "Path to the record:",
		Default: input,
	}, &input, survey.WithValidator(survey.Required))
	if err != nil {
		return err
	}

	record, err := RecordFromFile(input)
	if err != nil {
		return err
	}

	fmt.Printf("Computing a histogram of %d bins, waiting for the other parties...\n", len(record))

	result, err := node.Compute(ctx, record)
	if err != nil {
		return err
	}

	fmt.Println()
	PrintResult(os.Stdout, input, parties, result, c.Threshold)
	fmt.Println()

	return nil
}

// -----------------------------------------------------------------------------
// Settings

func askSettings(c *Config) error {
	for missing := c.Missing(); missing != "" && missing != "input"; missing = c.Missing() {
		switch missing {
		case "id":
			id := ""
			err := survey.AskOne(&survey.Input{Message: "Own party id:"}, &id,
				survey.WithValidator(validateID))
			if err != nil {
				return err
			}
			c.ID, _ = strconv.Atoi(strings.TrimSpace(id))

		case "parties":
			parties := ""
			err := survey.AskOne(&survey.Input{
				Message: "Parties (ID@HOST:PORT;ID@HOST:PORT;...):",
			}, &parties, survey.WithValidator(validateParties))
			if err != nil {
				return err
			}
			err = c.SetParties(parties)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func validateID(ans interface{}) error {
	s, _ := ans.(string)
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id < 0 {
		return fmt.Errorf("id must be a non-negative integer")
	}
	return nil
}

func validateParties(ans interface{}) error {
	s, _ := ans.(string)
	_, err := ParseParties(s)
	return err
}

// -----------------------------------------------------------------------------
// Exit

func exitParty() {
	fmt.Println("bye 👋")
	os.Exit(0)
}
