package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fitflow/fitflow/internal/client"
	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/mcp"
)

func (a *app) historyCmd() *cobra.Command {
	var limit int
	var offline, reset bool
	var trend string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show weekly progress, recovery, and recent workouts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			sess, _ := a.store.CurrentSession()

			userID := mcp.LocalUser
			if sess != nil {
				userID = sess.User.ID
			}

			if reset {
				if sess != nil {
					if err := a.historyClient(sess.Token).ResetFitness(ctx); err != nil {
						return err
					}
				}
				if err := a.store.SaveFitness(userID, history.Initial(time.Now())); err != nil {
					return err
				}
				fmt.Fprintln(out, "History reset.")
				return nil
			}

			if trend != "" {
				if sess == nil {
					return errors.New("trends come from the history server, run `fitflow login` first")
				}
				periods, err := a.historyClient(sess.Token).Summary(ctx, time.Time{}, time.Time{}, "1 "+trend)
				if err != nil {
					return err
				}
				printSummary(out, periods)
				return nil
			}

			if sess != nil && !offline {
				d, err := a.historyClient(sess.Token).Fitness(ctx)
				switch {
				case err == nil:
					if err := a.store.SaveFitness(userID, d.Data); err != nil {
						return err
					}
					printDashboard(out, *d, limit)
					return nil
				case errors.Is(err, client.ErrUnauthorized):
					return errors.New("session expired, run `fitflow login` again")
				default:
					a.log.Warn("history server unreachable, showing cached data", "error", err)
				}
			}

			now := time.Now()
			data, err := a.store.Fitness(userID, now)
			if err != nil {
				return err
			}
			printDashboard(out, history.NewDashboard(data, now), limit)
			if pending, _ := a.store.Pending(userID); len(pending) > 0 {
				fmt.Fprintln(out, warnColor(fmt.Sprintf("%d workout(s) not yet synced", len(pending))))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of recent workouts to show")
	cmd.Flags().BoolVar(&offline, "offline", false, "show cached data without contacting the server")
	cmd.Flags().StringVar(&trend, "trend", "", "show totals per day, week or month instead of the dashboard")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear all workout history")
	return cmd
}
