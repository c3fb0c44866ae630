package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fitflow/fitflow/internal/client"
)

func (a *app) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Upload workouts recorded offline and refresh the local copy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			sess, err := a.session()
			if err != nil {
				return err
			}
			hc := a.historyClient(sess.Token)
			userID := sess.User.ID

			pending, err := a.store.Pending(userID)
			if err != nil {
				return err
			}
			uploaded := 0
			for _, res := range pending {
				if _, err := hc.SubmitWorkout(ctx, res); err != nil {
					if errors.Is(err, client.ErrUnauthorized) {
						return errors.New("session expired, run `fitflow login` again")
					}
					return fmt.Errorf("uploading workout %s: %w", res.ID, err)
				}
				if err := a.store.MarkUploaded(res.ID); err != nil {
					return err
				}
				uploaded++
				a.log.Debug("uploaded", "id", res.ID, "plan", res.PlanID)
			}

			d, err := hc.Fitness(ctx)
			if err != nil {
				return fmt.Errorf("refreshing history: %w", err)
			}
			if err := a.store.SaveFitness(userID, d.Data); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %d workout(s) uploaded, %d in history\n",
				successColor("Synced."), uploaded, len(d.Data.WorkoutHistory))
			return nil
		},
	}
}
