package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menufest/menufest/config"
	"github.com/menufest/menufest/internal/agent/core"
)

func replayCMD() *cobra.Command {
	var (
		cfgPath      string
		selectorFile string
		userID       string
		people       int
		days         int
		meals        []string
		preferences  []string
		maxTime      int
		maxSteps     int
		startDate    string
	)

	var replay = &cobra.Command{
		Use:   "replay",
		Short: "Rerun planning from a saved selector output file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			orch, cleanup, err := buildOrchestrator(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := orch.RunFromSelectorFile(ctx, selectorFile, core.PipelineRequest{
				UserID:         userID,
				People:         people,
				Days:           days,
				Meals:          meals,
				Preferences:    preferences,
				MaxCookingTime: maxTime,
				MaxSteps:       maxSteps,
				StartDate:      startDate,
			})
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(encoded))
			return nil
		},
	}

	replay.Flags().StringVar(&selectorFile, "selector-file", "", "selector output artifact to replay from")
	replay.Flags().StringVar(&userID, "user", "", "user the plan belongs to")
	replay.Flags().IntVar(&people, "people", 2, "number of people")
	replay.Flags().IntVar(&days, "days", 1, "number of days to plan")
	replay.Flags().StringSliceVar(&meals, "meals", nil, "meal slots (default from config)")
	replay.Flags().StringSliceVar(&preferences, "preferences", nil, "preference tags (default from config)")
	replay.Flags().IntVar(&maxTime, "max-time", 0, "max cooking minutes per recipe (default from config)")
	replay.Flags().IntVar(&maxSteps, "max-steps", 0, "max steps per recipe (default from config)")
	replay.Flags().StringVar(&startDate, "start-date", "", "plan start date YYYY-MM-DD (default today)")
	replay.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	_ = replay.MarkFlagRequired("selector-file")
	_ = replay.MarkFlagRequired("user")

	return replay
}
