package cmd

import (
	"context"
	"io"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"go.dedis.ch/mpchist/peer/impl"
)

// -----------------------------------------------------------------------------
// Run

// Run computes one histogram per input, each with a fresh run, and prints the
// results to w. It stops at the first failed run.
func Run(ctx context.Context, c *Config, w io.Writer) error {
	conf, err := c.PeerConfiguration()
	if err != nil {
		return err
	}

	node := impl.NewPeer(conf)

	for _, input := range c.Inputs {
		record, err := RecordFromFile(input)
		if err != nil {
			return err
		}

		log.Info().Msgf("party %d: computing histogram of %s (%d bins)", c.ID, input, len(record))

		result, err := node.Compute(ctx, record)
		if err != nil {
			return err
		}

		PrintResult(w, filepath.Base(input), conf.NumParties(), result, c.Threshold)
	}

	return nil
}
