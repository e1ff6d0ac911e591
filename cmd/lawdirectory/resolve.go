package main

import (
	"encoding/json"
	"os"

	"github.com/smallbiznis/lawdirectory/internal/coverage"
	coveragedomain "github.com/smallbiznis/lawdirectory/internal/coverage/domain"
	"github.com/smallbiznis/lawdirectory/internal/effectiveplan"
	effectiveplandomain "github.com/smallbiznis/lawdirectory/internal/effectiveplan/domain"
	"github.com/smallbiznis/lawdirectory/internal/market"
	marketdomain "github.com/smallbiznis/lawdirectory/internal/market/domain"
	"github.com/smallbiznis/lawdirectory/internal/plan"
	"github.com/smallbiznis/lawdirectory/internal/plangroup"
	"github.com/spf13/cobra"
)

var (
	resolveWithPlans bool
	resolveCity      string
	resolveState     string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [zip]",
	Short: "Print the market and lawyer coverage for a zip code or a --city/--state location",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return runOnce(ctx, func(coverageSvc coveragedomain.Service, effectiveSvc effectiveplandomain.Service) error {
			var (
				result *coveragedomain.Result
				err    error
			)
			if len(args) == 1 {
				result, err = coverageSvc.Resolve(ctx, args[0])
			} else {
				result, err = coverageSvc.ResolveLocation(ctx, marketdomain.LocationRequest{City: resolveCity, State: resolveState})
			}
			if err != nil {
				return err
			}

			out := map[string]any{"coverage": result}
			if resolveWithPlans && result.Market != nil {
				plans, err := effectiveSvc.GetEffectivePlans(ctx, result.Market.ID)
				if err != nil {
					return err
				}
				out["plans"] = plans
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		}, market.Module, coverage.Module, plan.Module, plangroup.Module, effectiveplan.Module)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveCity, "city", "", "city name, used when no zip is given")
	resolveCmd.Flags().StringVar(&resolveState, "state", "", "state name or abbreviation, used when no zip is given")
	resolveCmd.Flags().BoolVar(&resolveWithPlans, "plans", false, "also print the effective plans for the resolved market")
}
