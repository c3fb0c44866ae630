package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fitflow/fitflow/internal/client"
	"github.com/fitflow/fitflow/internal/health"
	"github.com/fitflow/fitflow/internal/localstore"
	"github.com/fitflow/fitflow/internal/models"
)

func (a *app) registerCmd() *cobra.Command {
	var s client.Signup
	var level string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if s.Password == "" {
				s.Password = promptLine("Password: ")
			}
			s.FitnessLevel = models.Difficulty(level)

			auth := a.authClient("")
			if _, err := auth.Register(cmd.Context(), s); err != nil {
				return err
			}
			return a.signIn(cmd, auth, s.Email, s.Password)
		},
	}
	f := cmd.Flags()
	f.StringVar(&s.FullName, "name", "", "full name")
	f.StringVar(&s.Email, "email", "", "email address")
	f.StringVar(&s.Password, "password", "", "password (prompted when omitted)")
	f.StringVar(&s.Gender, "gender", "", "male or female")
	f.StringVar(&s.Height, "height", "", `height, e.g. 175 or 5'10"`)
	f.StringVar(&s.Weight, "weight", "", "weight, e.g. 70 or 154 lbs")
	f.IntVar(&s.Age, "age", 0, "age in years")
	f.StringVar(&level, "level", string(models.Beginner), "fitness level: Beginner, Intermediate or Advanced")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the FitFlow backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = promptLine("Password: ")
			}
			return a.signIn(cmd, a.authClient(""), email, password)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) signIn(cmd *cobra.Command, auth *client.Auth, email, password string) error {
	res, err := auth.Login(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	if err := a.store.SaveSession(localstore.Session{User: res.User, Token: res.Token}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s signed in as %s\n", successColor("OK"), res.User.FullName)
	return nil
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out; offline history and unsynced workouts are kept",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.store.ClearSession(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (a *app) profileCmd() *cobra.Command {
	var gender, height, weight, level, name string
	var age int
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update your profile and body metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.session()
			if err != nil {
				return err
			}
			p := sess.User

			f := cmd.Flags()
			changed := false
			for flag, apply := range map[string]func(){
				"name":   func() { p.FullName = name },
				"gender": func() { p.Gender = gender },
				"height": func() { p.Height = height },
				"weight": func() { p.Weight = weight },
				"age":    func() { p.Age = age },
				"level":  func() { p.FitnessLevel = models.Difficulty(level) },
			} {
				if f.Changed(flag) {
					apply()
					changed = true
				}
			}

			if changed {
				updated, err := a.authClient(sess.Token).UpdateProfile(cmd.Context(), p)
				if err != nil {
					return err
				}
				if updated.ID == "" {
					updated.ID = p.ID
				}
				p = *updated
				if err := a.store.SaveSession(localstore.Session{User: p, Token: sess.Token}); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			m := health.FromProfile(p.Gender, p.Weight, p.Height, p.Age)
			fmt.Fprintln(out, headerColor(p.FullName), dimColor(p.Email))
			fmt.Fprintf(out, "  Level   %s\n", p.FitnessLevel)
			fmt.Fprintf(out, "  Height  %s (%.0f cm)\n", p.Height, m.HeightCm)
			fmt.Fprintf(out, "  Weight  %s (%.1f kg)\n", p.Weight, m.WeightKg)
			if m.BMI > 0 {
				fmt.Fprintf(out, "  BMI     %.1f (%s)\n", m.BMI, m.Category)
			}
			fmt.Fprintf(out, "  BMR     %.0f kcal/day\n", m.BMR)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "full name")
	f.StringVar(&gender, "gender", "", "male or female")
	f.StringVar(&height, "height", "", `height, e.g. 175 or 5'10"`)
	f.StringVar(&weight, "weight", "", "weight, e.g. 70 or 154 lbs")
	f.IntVar(&age, "age", 0, "age in years")
	f.StringVar(&level, "level", "", "fitness level: Beginner, Intermediate or Advanced")
	return cmd
}

func promptLine(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimSpace(line)
}
