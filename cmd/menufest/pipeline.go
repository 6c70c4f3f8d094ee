package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/menufest/menufest/config"
	"github.com/menufest/menufest/internal/agent/core"
)

func pipelineCMD() *cobra.Command {
	var (
		cfgPath     string
		userID      string
		people      int
		days        int
		meals       []string
		allergies   []string
		exclude     []string
		preferences []string
		maxTime     int
		maxSteps    int
		startDate   string
	)

	var pipeline = &cobra.Command{
		Use:   "pipeline",
		Short: "Run the full selection and planning pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			ctx := context.Background()

			orch, cleanup, err := buildOrchestrator(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := orch.Run(ctx, core.PipelineRequest{
				UserID: userID,
				People: people,
				Days:   days,
				Meals:  meals,
				Constraints: core.SelectorConstraints{
					Allergies:          allergies,
					ExcludeIngredients: exclude,
				},
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

	pipeline.Flags().StringVar(&userID, "user", "", "user whose fridge to plan from")
	pipeline.Flags().IntVar(&people, "people", 2, "number of people")
	pipeline.Flags().IntVar(&days, "days", 1, "number of days to plan")
	pipeline.Flags().StringSliceVar(&meals, "meals", nil, "meal slots (default from config)")
	pipeline.Flags().StringSliceVar(&allergies, "allergies", nil, "ingredients to avoid for allergies")
	pipeline.Flags().StringSliceVar(&exclude, "exclude", nil, "ingredients the user will not eat")
	pipeline.Flags().StringSliceVar(&preferences, "preferences", nil, "preference tags (default from config)")
	pipeline.Flags().IntVar(&maxTime, "max-time", 0, "max cooking minutes per recipe (default from config)")
	pipeline.Flags().IntVar(&maxSteps, "max-steps", 0, "max steps per recipe (default from config)")
	pipeline.Flags().StringVar(&startDate, "start-date", "", "plan start date YYYY-MM-DD (default today)")
	pipeline.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")
	_ = pipeline.MarkFlagRequired("user")

	return pipeline
}
