// Command garchive archives a stream of length-prefixed block records
// into erasure-coded, commitment-bound pieces in a local store,
// verifies a store's header chain and piece proofs,
// and reconstructs segment bytes from whatever pieces remain.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/gordian-engine/garchive"
	"github.com/gordian-engine/garchive/gabuffer"
	"github.com/gordian-engine/garchive/gaerasure/gareedsolomon"
	"github.com/gordian-engine/garchive/gaheader"
	"github.com/gordian-engine/garchive/gasegment"
	"github.com/gordian-engine/garchive/gastore"
	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	root := rootCmd(log)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type paramFlags struct {
	segmentCapacity int
	shardSize       int
	dataShards      int
	parityShards    int
	padByte         uint8
}

func (f *paramFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().IntVar(&f.segmentCapacity, "segment-capacity", 1<<20, "Source bytes per segment")
	cmd.PersistentFlags().IntVar(&f.shardSize, "shard-size", 1<<18, "Bytes per shard")
	cmd.PersistentFlags().IntVar(&f.dataShards, "data-shards", 4, "Source shard count (k)")
	cmd.PersistentFlags().IntVar(&f.parityShards, "parity-shards", 4, "Parity shard count (m)")
	cmd.PersistentFlags().Uint8Var(&f.padByte, "pad-byte", 0, "Pad byte for the final source shard")
}

func (f *paramFlags) params() (garchive.Params, error) {
	p := garchive.Params{
		SegmentCapacity: f.segmentCapacity,
		ShardSize:       f.shardSize,
		DataShards:      f.dataShards,
		ParityShards:    f.parityShards,
		PadByte:         f.padByte,
	}
	if err := p.Validate(); err != nil {
		return garchive.Params{}, err
	}
	return p, nil
}

func rootCmd(log *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "garchive",
		Short: "Archive blockchain history into erasure-coded, verifiable pieces",
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	var storePath string
	cmd.PersistentFlags().StringVar(&storePath, "store", "garchive.db", "Path to the archive store")

	pf := new(paramFlags)
	pf.register(cmd)

	cmd.AddCommand(
		archiveCmd(log, &storePath, pf),
		verifyCmd(log, &storePath, pf),
		reconstructCmd(log, &storePath, pf),
	)

	return cmd
}

func archiveCmd(log *slog.Logger, storePath *string, pf *paramFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "archive INPUT",
		Short: "Archive a file of length-prefixed block records into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := pf.params()
			if err != nil {
				return err
			}

			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open input: %w", err)
			}
			defer in.Close()

			store, err := gastore.Open(log, *storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			// Resume from the stored tip, if any.
			chain := gaheader.NewChain()
			tip, err := store.TipHeader()
			switch {
			case err == nil:
				headers, err := store.Headers()
				if err != nil {
					return err
				}
				if err := gaheader.VerifyChain(headers); err != nil {
					return fmt.Errorf("stored header chain is invalid: %w", err)
				}
				chain = gaheader.NewChainAt(tip)
			case !errors.Is(err, gastore.ErrNotFound):
				return err
			}

			coder, err := gareedsolomon.NewCoder(params.DataShards, params.ParityShards, params.ShardSize)
			if err != nil {
				return err
			}

			archiver, err := gasegment.NewArchiver(log, params, coder, chain)
			if err != nil {
				return err
			}

			archived := 0
			reader := gabuffer.NewRecordReader()
			data, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			reader.Append(data)

			for _, payload := range reader.Records() {
				record, err := gabuffer.NewRecord(payload)
				if err != nil {
					return err
				}

				segs, err := archiver.Push(cmd.Context(), record)
				if err != nil {
					return err
				}

				for _, seg := range segs {
					if err := store.PutSegment(seg); err != nil {
						return err
					}
					archived++
				}
			}

			if n := reader.Pending(); n != 0 {
				return fmt.Errorf("input ends mid-record with %d trailing bytes", n)
			}

			log.Info("Archiving complete",
				"segments", archived,
				"buffered_bytes", archiver.Buffered(),
			)
			return nil
		},
	}
}

func verifyCmd(log *slog.Logger, storePath *string, pf *paramFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the stored header chain and every stored piece proof",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := pf.params()
			if err != nil {
				return err
			}

			store, err := gastore.Open(log, *storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			headers, err := store.Headers()
			if err != nil {
				return err
			}
			if err := gaheader.VerifyChain(headers); err != nil {
				return fmt.Errorf("header chain verification failed: %w", err)
			}

			verified := 0
			for _, h := range headers {
				pieces, err := store.SegmentPieces(h.SegmentIndex)
				if err != nil {
					return err
				}
				for _, p := range pieces {
					if err := gasegment.VerifyPiece(params, h, p); err != nil {
						return fmt.Errorf("piece %d/%d failed verification: %w", h.SegmentIndex, p.Index, err)
					}
					verified++
				}
			}

			log.Info("Archive verified", "headers", len(headers), "pieces", verified)
			return nil
		},
	}
}

func reconstructCmd(log *slog.Logger, storePath *string, pf *paramFlags) *cobra.Command {
	var segmentIndex uint64
	var outPath string

	cmd := &cobra.Command{
		Use:   "reconstruct",
		Short: "Reconstruct one segment's source bytes from stored pieces",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := pf.params()
			if err != nil {
				return err
			}

			store, err := gastore.Open(log, *storePath)
			if err != nil {
				return err
			}
			defer store.Close()

			header, err := store.Header(segmentIndex)
			if err != nil {
				return err
			}
			pieces, err := store.SegmentPieces(segmentIndex)
			if err != nil {
				return err
			}

			coder, err := gareedsolomon.NewCoder(params.DataShards, params.ParityShards, params.ShardSize)
			if err != nil {
				return err
			}
			r, err := gasegment.NewReconstructor(log, params, coder)
			if err != nil {
				return err
			}

			seg, err := r.ReconstructSegment(cmd.Context(), header, pieces)
			if err != nil {
				return err
			}

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			if _, err := out.Write(seg); err != nil {
				return fmt.Errorf("failed to write segment bytes: %w", err)
			}

			log.Info("Segment reconstructed",
				"segment_index", segmentIndex,
				"bytes", len(seg),
				"pieces_available", len(pieces),
			)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&segmentIndex, "segment", 0, "Segment index to reconstruct")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file (defaults to stdout)")

	return cmd
}
