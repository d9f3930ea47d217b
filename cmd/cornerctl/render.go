package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Corner-Boxing/corner-backend/internal/assets"
	"github.com/Corner-Boxing/corner-backend/internal/audio"
	"github.com/Corner-Boxing/corner-backend/internal/timeline"
)

var (
	renderOut       string
	renderAssetsDir string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Generate a plan and render it to a local audio file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		plan, err := buildPlan()
		if err != nil {
			return err
		}

		manifest, err := assets.LoadManifest(cfg.Assets.Manifest)
		if err != nil {
			return err
		}
		dir := renderAssetsDir
		if dir == "" {
			dir = cfg.Assets.Dir
		}
		repo := assets.NewDirRepository(dir)
		codec := audio.NewCodec(cfg.Audio.FFmpegPath, cfg.Audio.Format, cfg.Audio.Bitrate)

		var rng *rand.Rand
		if planSeed != 0 {
			rng = rand.New(rand.NewPCG(planSeed, planSeed+1))
		}
		assembler := timeline.NewAssembler(assets.NewResolver(repo, manifest, rng), timeline.NewDecodingLoader(repo, codec))

		start := time.Now()
		track, err := assembler.Build(ctx, plan)
		if err != nil {
			return err
		}
		log.Printf("Assembled %d rounds (%s) in %s", plan.NumRounds, audio.Duration(track.DurationMs()), time.Since(start).Round(time.Millisecond))

		out := renderOut
		if out == "" {
			out = fmt.Sprintf("class_%s_%dmin%s", plan.Difficulty, plan.LengthMin, codec.Extension())
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		if err := codec.Encode(ctx, track, f); err != nil {
			f.Close()
			os.Remove(out)
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

func init() {
	addPlanFlags(renderCmd)
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output file (default class_<difficulty>_<length>min.<ext>)")
	renderCmd.Flags().StringVar(&renderAssetsDir, "assets", "", "Cue library directory (default ASSETS_DIR)")
	rootCmd.AddCommand(renderCmd)
}
