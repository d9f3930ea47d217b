package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/Corner-Boxing/corner-backend/internal/assets"
	"github.com/Corner-Boxing/corner-backend/internal/model"
	"github.com/Corner-Boxing/corner-backend/internal/planner"
)

var (
	planDifficulty string
	planLength     string
	planPace       string
	planMusic      string
	planSeed       uint64
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print a generated class plan as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := buildPlan()
		if err != nil {
			return err
		}
		b, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	},
}

// buildPlan generates a plan from the shared plan flags. A zero seed
// means a fresh random plan each run.
func buildPlan() (*model.ClassPlan, error) {
	params, err := planner.ParseParams(model.GenerateRequest{
		Difficulty: planDifficulty,
		Length:     model.ParseFlexInt(planLength),
		Pace:       planPace,
		Music:      planMusic,
	}, cfg.Plan.StrictInput, cfg.Plan.DefaultLength)
	if err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&params); err != nil {
		return nil, fmt.Errorf("%w: %v", planner.ErrInvalidInput, err)
	}

	manifest, err := assets.LoadManifest(cfg.Assets.Manifest)
	if err != nil {
		return nil, err
	}

	var rng *rand.Rand
	if planSeed != 0 {
		rng = rand.New(rand.NewPCG(planSeed, planSeed))
	}
	return planner.New(manifest, rng).BuildClassPlan(params), nil
}

func addPlanFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&planDifficulty, "difficulty", "beginner", "beginner|intermediate|advanced")
	cmd.Flags().StringVar(&planLength, "length", "", "Class length in minutes (default from PLAN_DEFAULT_LENGTH)")
	cmd.Flags().StringVar(&planPace, "pace", "normal", "slow|normal|fast")
	cmd.Flags().StringVar(&planMusic, "music", "", "Music label carried in the plan")
	cmd.Flags().Uint64Var(&planSeed, "seed", 0, "Seed for reproducible plans (0 = random)")
}

func init() {
	addPlanFlags(planCmd)
	rootCmd.AddCommand(planCmd)
}
