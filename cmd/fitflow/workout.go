package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fitflow/fitflow/internal/camera"
	"github.com/fitflow/fitflow/internal/health"
	"github.com/fitflow/fitflow/internal/history"
	"github.com/fitflow/fitflow/internal/localstore"
	"github.com/fitflow/fitflow/internal/mcp"
	"github.com/fitflow/fitflow/internal/models"
	"github.com/fitflow/fitflow/internal/session"
	"github.com/fitflow/fitflow/internal/stream"
)

func (a *app) workoutCmd() *cobra.Command {
	var frames, setMode string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "workout <plan-or-exercise>",
		Short: "Run a workout plan or a single exercise",
		Long: `Run a workout plan (see "fitflow plans") or a single exercise as a quick workout.

Controls while running: p pause, r resume, t retry after an error, q quit.
Each key is followed by Enter.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := a.catalog.Resolve(args[0])
			if err != nil {
				return err
			}

			tc := a.cfg.Trainer
			if frames != "" {
				tc.Frames = frames
			}
			if setMode != "" {
				tc.SetMode = setMode
			}
			if tc.Frames == "" {
				return errors.New("no camera frames configured, set trainer.frames or pass --frames")
			}

			sess, _ := a.store.CurrentSession()
			out := cmd.OutOrStdout()

			var last string
			ctrl, err := session.New(session.Options{
				Plan:    plan,
				BMR:     sessionBMR(sess),
				Camera:  camera.DirSource{Dir: tc.Frames},
				Streams: session.DialerOpener{Dialer: stream.NewDialer(tc.StreamConfig(), a.log)},
				Rules:   tc.Rules(),
				SetMode: tc.Mode(),
				Cues: session.Cues{
					Rest:   func() { bell(quiet) },
					Finish: func() { bell(quiet) },
				},
				OnUpdate: func(s session.Snapshot) {
					line := statusLine(s)
					if line != last {
						fmt.Fprintf(out, "\r\033[K%s", line)
						last = line
					}
				},
				Log: a.log,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go readControls(ctx, cmd.InOrStdin(), ctrl)

			fmt.Fprintln(out, headerColor(plan.Name), dimColor("(p pause, r resume, t retry, q quit)"))
			ctrl.Start()
			res, err := ctrl.Run(ctx)
			fmt.Fprintln(out)
			if errors.Is(err, session.ErrCancelled) || errors.Is(err, context.Canceled) {
				fmt.Fprintln(out, "Workout cancelled, nothing recorded.")
				return nil
			}
			if err != nil {
				return err
			}

			printResult(out, res)
			return a.record(cmd.Context(), out, sess, *res)
		},
	}
	cmd.Flags().StringVar(&frames, "frames", "", "directory of camera frames (overrides trainer.frames)")
	cmd.Flags().StringVar(&setMode, "sets", "", "set mode: collapsed or cycled (overrides trainer.set_mode)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "no terminal bell on rest and finish")
	return cmd
}

// sessionBMR is the signed-in user's BMR, or 0 when nobody is signed in.
func sessionBMR(sess *localstore.Session) float64 {
	if sess == nil {
		return 0
	}
	if sess.User.BMR != nil && *sess.User.BMR > 0 {
		return *sess.User.BMR
	}
	u := sess.User
	return health.FromProfile(u.Gender, u.Weight, u.Height, u.Age).BMR
}

// record folds a finished session into the offline aggregates, queues it for
// upload, and tries the upload straight away. A failed upload stays queued
// for `fitflow sync`.
func (a *app) record(ctx context.Context, out io.Writer, sess *localstore.Session, res models.SessionResult) error {
	userID := mcp.LocalUser
	if sess != nil {
		userID = sess.User.ID
	}

	now := time.Now()
	data, err := a.store.Fitness(userID, now)
	if err != nil {
		return err
	}
	if err := a.store.SaveFitness(userID, history.AddWorkout(data, res, now)); err != nil {
		return err
	}

	if sess == nil {
		fmt.Fprintln(out, dimColor("Saved locally. Sign in to sync your history."))
		return nil
	}
	if err := a.store.Enqueue(userID, res); err != nil {
		return err
	}

	submitted, err := a.historyClient(sess.Token).SubmitWorkout(ctx, res)
	if err != nil {
		a.log.Warn("upload failed, workout kept for sync", "id", res.ID, "error", err)
		fmt.Fprintln(out, warnColor("Saved locally; run `fitflow sync` to upload."))
		return nil
	}
	if err := a.store.MarkUploaded(res.ID); err != nil {
		return err
	}
	if err := a.store.SaveFitness(userID, submitted.Fitness); err != nil {
		return err
	}
	fmt.Fprintln(out, successColor("Synced."))
	return nil
}

// readControls maps line-based key presses to controller commands until ctx ends.
func readControls(ctx context.Context, in io.Reader, ctrl *session.Controller) {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		switch strings.ToLower(strings.TrimSpace(sc.Text())) {
		case "p":
			ctrl.Pause()
		case "r":
			ctrl.Resume()
		case "t":
			ctrl.Retry()
		case "q":
			ctrl.Cancel()
			return
		}
	}
}

func bell(quiet bool) {
	if !quiet {
		fmt.Fprint(os.Stderr, "\a")
	}
}
